package utils

import (
	"TicketMarket/configs"
	"io"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

type EmailPayload struct {
	To       []string
	Subject  string
	HTMLBody string

	// EmbeddedImages maps a content id to PNG bytes referenced as cid:<id>.
	EmbeddedImages map[string][]byte
}

type EmailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService() *EmailService {
	senderEmail := configs.GetSenderEmail()
	d := gomail.NewDialer(configs.GetSMTPHost(), configs.GetSMTPPort(), senderEmail, configs.GetAppPassword())

	return &EmailService{
		dialer: d,
		from:   senderEmail,
	}
}

// BuildMessage assembles the MIME message without sending it.
func (s *EmailService) BuildMessage(payload EmailPayload) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", payload.To...)
	m.SetHeader("Subject", payload.Subject)
	m.SetBody("text/html", payload.HTMLBody)

	for cid, data := range payload.EmbeddedImages {
		data := data
		m.Embed(cid, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return m
}

func (s *EmailService) SendEmail(payload EmailPayload) error {
	if err := s.dialer.DialAndSend(s.BuildMessage(payload)); err != nil {
		logrus.WithError(err).WithField("to", payload.To).Error("sending mail")
		return err
	}

	logrus.WithField("to", payload.To).Info("mail sent")
	return nil
}
