package view

import (
	"TicketMarket/collections"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const qrSize = 256

var displayZone = time.FixedZone("ICT", 7*60*60)

// QRCodePNG renders the check-in payload of a ticket. The payload is the
// ticket code itself so any scanner can submit it unchanged.
func QRCodePNG(code string) ([]byte, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encoding qr for %s: %w", code, err)
	}
	return png, nil
}

type orderEmailData struct {
	RecipientName string
	EventName     string
	EventTime     string
	EventLocation string
	OrderID       string
	Total         string
	Currency      string
	Tickets       []ticketEmailData
}

type ticketEmailData struct {
	QRCodeCID      string
	TicketTypeName string
	TicketPrice    string
	IssuedAt       string
	TicketCode     string
}

var orderPaidTemplate = template.Must(template.New("orderPaid").Parse(`
<html><body style='font-family: Arial, sans-serif; line-height: 1.6; margin: 0; padding: 0;'>
<div style='max-width: 640px; margin: 20px auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px;'>
    <h2>Hello {{.RecipientName}},</h2>
    <p>Thank you for your purchase. Order <code>{{.OrderID}}</code> is paid ({{.Total}} {{.Currency}}).</p>

    <h3 style='border-bottom: 2px solid #eee; padding-bottom: 5px;'>Event</h3>
    <p style='margin: 5px 0;'><strong>Event:</strong> {{.EventName}}</p>
    <p style='margin: 5px 0;'><strong>When:</strong> {{.EventTime}}</p>
    <p style='margin: 5px 0;'><strong>Where:</strong> {{.EventLocation}}</p>
    <br>

    <h3 style='border-bottom: 2px solid #eee; padding-bottom: 5px;'>Tickets</h3>
    <p>Show the QR code below at the entrance.</p>

    {{range .Tickets}}
    <div style='border: 1px solid #ddd; border-radius: 8px; padding: 16px; margin-bottom: 20px;'>
        <table border='0' cellpadding='0' cellspacing='0' width='100%'>
            <tr>
                <td width='140' style='width: 140px; padding-right: 15px; vertical-align: top;'>
                    <img src='cid:{{.QRCodeCID}}' alt='QR code' width='120' height='120' style='width: 120px; height: 120px; border: 1px solid #eee;' />
                </td>
                <td style='vertical-align: top; font-size: 14px; line-height: 1.7;'>
                    <strong style='font-size: 16px; color: #333;'>{{.TicketTypeName}}</strong><br>
                    Price: {{.TicketPrice}}<br>
                    Issued: {{.IssuedAt}}<br>
                    Code: <code style='font-size: 13px; background-color: #f4f4f4; padding: 2px 5px; border-radius: 4px;'>{{.TicketCode}}</code>
                </td>
            </tr>
        </table>
    </div>
    {{end}}

    <hr style='border: 0; border-top: 1px solid #eee; margin-top: 20px;'>
    <p style='font-size: 12px; color: #777;'>Regards,<br>The TicketMarket team</p>
</div>
</body></html>
`))

func eventTime(e *collections.Event) string {
	return e.Schedule.StartAt.In(displayZone).Format("15:04 02/01/2006") + " - " +
		e.Schedule.EndAt.In(displayZone).Format("15:04 02/01/2006")
}

func eventLocation(e *collections.Event) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{e.Venue.Name, e.Venue.Address} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// BuildOrderPaidEmail returns subject, html body and the QR images keyed by
// content id.
func BuildOrderPaidEmail(event *collections.Event, order *collections.Order, tickets []collections.Ticket) (string, string, map[string][]byte, error) {
	lines := make(map[primitive.ObjectID]collections.OrderLine, len(order.Lines))
	for _, l := range order.Lines {
		lines[l.ID] = l
	}

	data := orderEmailData{
		RecipientName: order.BuyerName,
		EventName:     event.Title,
		EventTime:     eventTime(event),
		EventLocation: eventLocation(event),
		OrderID:       order.ID.Hex(),
		Total:         order.Total.StringFixed(2),
		Currency:      order.Currency,
	}
	if data.RecipientName == "" {
		data.RecipientName = order.BuyerEmail
	}

	embedded := make(map[string][]byte, len(tickets))
	for _, t := range tickets {
		png, err := QRCodePNG(t.Code)
		if err != nil {
			return "", "", nil, err
		}
		cid := t.Code + ".png"
		embedded[cid] = png

		name, price := "Ticket", decimal.Zero
		if t.OrderLineID != nil {
			if l, ok := lines[*t.OrderLineID]; ok {
				name, price = l.TicketTypeName, l.UnitPrice
			}
		}

		data.Tickets = append(data.Tickets, ticketEmailData{
			QRCodeCID:      cid,
			TicketTypeName: name,
			TicketPrice:    price.StringFixed(2) + " " + order.Currency,
			IssuedAt:       t.CreatedAt.In(displayZone).Format("15:04 02/01/2006"),
			TicketCode:     t.Code,
		})
	}

	var body strings.Builder
	if err := orderPaidTemplate.Execute(&body, data); err != nil {
		return "", "", nil, fmt.Errorf("rendering order email: %w", err)
	}

	return fmt.Sprintf("Your tickets for %s", event.Title), body.String(), embedded, nil
}

type transferEmailData struct {
	FromEmail string
	ToEmail   string
	EventName string
	EventTime string
	Accepted  bool
}

var transferTemplate = template.Must(template.New("transfer").Parse(`
<html><body style='font-family: Arial, sans-serif; line-height: 1.6;'>
<div style='max-width: 640px; margin: 20px auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px;'>
    {{if .Accepted}}
    <h2>Your transfer was accepted</h2>
    <p>{{.ToEmail}} accepted the ticket for <strong>{{.EventName}}</strong> ({{.EventTime}}). It no longer appears in your account.</p>
    {{else}}
    <h2>You have been sent a ticket</h2>
    <p>{{.FromEmail}} wants to transfer a ticket for <strong>{{.EventName}}</strong> ({{.EventTime}}) to you.</p>
    <p>Sign in with {{.ToEmail}} to accept or reject it.</p>
    {{end}}
    <hr style='border: 0; border-top: 1px solid #eee; margin-top: 20px;'>
    <p style='font-size: 12px; color: #777;'>Regards,<br>The TicketMarket team</p>
</div>
</body></html>
`))

// BuildTransferEmail renders the mail for either side of a transfer. The
// recipient gets the offer; the sender gets the acceptance.
func BuildTransferEmail(event *collections.Event, transfer *collections.TicketTransfer, accepted bool) (to, subject, body string, err error) {
	data := transferEmailData{
		FromEmail: transfer.FromEmail,
		ToEmail:   transfer.ToEmail,
		EventName: event.Title,
		EventTime: eventTime(event),
		Accepted:  accepted,
	}

	var sb strings.Builder
	if err := transferTemplate.Execute(&sb, data); err != nil {
		return "", "", "", fmt.Errorf("rendering transfer email: %w", err)
	}

	if accepted {
		return transfer.FromEmail, fmt.Sprintf("Ticket for %s accepted", event.Title), sb.String(), nil
	}
	return transfer.ToEmail, fmt.Sprintf("A ticket for %s is waiting for you", event.Title), sb.String(), nil
}
