package service

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"TicketMarket/monitoring"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is the authenticated caller as the identity provider vouches
// for it.
type Account struct {
	ID    primitive.ObjectID
	Email string
	Name  string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var validate = validator.New()

type Transfers struct {
	store    TransferStore
	notifier Notifier
	now      func() time.Time
}

func NewTransfers(store TransferStore, notifier Notifier) *Transfers {
	return &Transfers{store: store, notifier: notifier, now: time.Now}
}

// Initiate offers ticketID to whoever owns toEmail.
func (s *Transfers) Initiate(ctx context.Context, ticketID primitive.ObjectID, from Account, toEmail string) (*collections.TicketTransfer, error) {
	toEmail = normalizeEmail(toEmail)
	if err := validate.Var(toEmail, "required,email"); err != nil {
		return nil, consts.ErrInvalidEmail
	}
	if toEmail == normalizeEmail(from.Email) {
		return nil, consts.ErrTransferToSelf
	}

	t, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := checkTransferable(t, from.ID); err != nil {
		return nil, err
	}

	now := s.now()
	tr := &collections.TicketTransfer{
		ID:            primitive.NewObjectID(),
		TicketID:      t.ID,
		EventID:       t.EventID,
		FromAccountID: from.ID,
		FromEmail:     normalizeEmail(from.Email),
		ToEmail:       toEmail,
		Status:        consts.TransferPending,
		CreatedAt:     now,
	}
	err = s.store.BeginTransfer(ctx, tr, now)
	if errors.Is(err, errPreconditionFailed) {
		// Someone changed the ticket since it was read.
		t, err = s.store.GetTicket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if err := checkTransferable(t, from.ID); err != nil {
			return nil, err
		}
		return nil, consts.ErrTransferAlreadyPending
	}
	if err != nil {
		return nil, err
	}

	monitoring.TrackTransfer("initiated")
	logrus.WithFields(logrus.Fields{
		"ticket_id":   t.ID.Hex(),
		"transfer_id": tr.ID.Hex(),
	}).Info("transfer initiated")
	s.notify(ctx, consts.NotifyTransferInitiated, map[string]string{"transfer_id": tr.ID.Hex()})
	return tr, nil
}

func checkTransferable(t *collections.Ticket, holderID primitive.ObjectID) error {
	switch {
	case t.HolderID != holderID:
		return consts.ErrNotTicketHolder
	case t.IsUsed:
		return consts.ErrTicketAlreadyUsed
	case t.TransferStatus == consts.TicketTransferPending:
		return consts.ErrTransferAlreadyPending
	case t.TransferStatus == consts.TicketTransferCompleted:
		return consts.ErrTicketReceivedViaTransfer
	}
	return nil
}

// Accept hands the ticket to the invited account.
func (s *Transfers) Accept(ctx context.Context, transferID primitive.ObjectID, by Account) (*collections.TicketTransfer, error) {
	tr, err := s.pendingFor(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if normalizeEmail(by.Email) != tr.ToEmail {
		return nil, consts.ErrTransferRecipientMismatch
	}

	holder := &TransferHolder{AccountID: by.ID, Name: by.Name, Email: normalizeEmail(by.Email)}
	tr, err = s.store.ResolveTransfer(ctx, transferID, consts.TransferAccepted, holder, s.now())
	if err != nil {
		return nil, err
	}

	monitoring.TrackTransfer("accepted")
	logrus.WithFields(logrus.Fields{
		"ticket_id":   tr.TicketID.Hex(),
		"transfer_id": tr.ID.Hex(),
	}).Info("transfer accepted")
	s.notify(ctx, consts.NotifyTransferAccepted, map[string]string{"transfer_id": tr.ID.Hex()})
	return tr, nil
}

// Reject is the recipient declining. Ownership does not change.
func (s *Transfers) Reject(ctx context.Context, transferID primitive.ObjectID, by Account) (*collections.TicketTransfer, error) {
	tr, err := s.pendingFor(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if normalizeEmail(by.Email) != tr.ToEmail {
		return nil, consts.ErrTransferRecipientMismatch
	}
	return s.resolve(ctx, transferID, consts.TransferRejected)
}

// Cancel is the sender withdrawing the offer.
func (s *Transfers) Cancel(ctx context.Context, transferID primitive.ObjectID, by Account) (*collections.TicketTransfer, error) {
	tr, err := s.pendingFor(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if tr.FromAccountID != by.ID {
		return nil, consts.ErrTransferNotSender
	}
	return s.resolve(ctx, transferID, consts.TransferCancelled)
}

func (s *Transfers) resolve(ctx context.Context, transferID primitive.ObjectID, to consts.TransferStatus) (*collections.TicketTransfer, error) {
	tr, err := s.store.ResolveTransfer(ctx, transferID, to, nil, s.now())
	if err != nil {
		return nil, err
	}
	monitoring.TrackTransfer(string(to))
	logrus.WithFields(logrus.Fields{
		"ticket_id":   tr.TicketID.Hex(),
		"transfer_id": tr.ID.Hex(),
		"status":      to,
	}).Info("transfer resolved")
	return tr, nil
}

func (s *Transfers) pendingFor(ctx context.Context, transferID primitive.ObjectID) (*collections.TicketTransfer, error) {
	tr, err := s.store.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if tr.Status != consts.TransferPending {
		return nil, consts.ErrTransferAlreadyResolved
	}
	return tr, nil
}

// ListIncoming returns pending offers addressed to email.
func (s *Transfers) ListIncoming(ctx context.Context, email string) ([]collections.TicketTransfer, error) {
	return s.store.ListPendingTransfersTo(ctx, normalizeEmail(email))
}

func (s *Transfers) notify(ctx context.Context, kind string, payload map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, kind, payload); err != nil {
		logrus.WithError(err).WithField("kind", kind).Error("notification dropped")
	}
}
