package service

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"TicketMarket/monitoring"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	codeAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	MinTicketCodeLen   = 12
	maxIssueAttempts   = 8
	complimentaryScope = "comp"
)

type IssuerStore interface {
	TicketStore
	GetEvent(ctx context.Context, id primitive.ObjectID) (*collections.Event, error)
	GetTicketType(ctx context.Context, id primitive.ObjectID) (*collections.TicketType, error)
}

// Issuer mints tickets. Every ticket carries an issue key derived from the
// unit it stands for, so minting the same unit twice returns the existing
// ticket.
type Issuer struct {
	store     IssuerStore
	inventory *Inventory
	codeLen   int
	now       func() time.Time
}

func NewIssuer(store IssuerStore, inventory *Inventory, codeLen int) *Issuer {
	if codeLen < MinTicketCodeLen {
		codeLen = MinTicketCodeLen
	}
	return &Issuer{store: store, inventory: inventory, codeLen: codeLen, now: time.Now}
}

// IssueKey identifies purchased unit seq of an order line.
func IssueKey(lineID primitive.ObjectID, seq int) string {
	return fmt.Sprintf("%s:%d", lineID.Hex(), seq)
}

func complimentaryIssueKey(reservationID primitive.ObjectID) string {
	return fmt.Sprintf("%s:%s:0", complimentaryScope, reservationID.Hex())
}

// GenerateTicketCode draws n symbols from A-Z0-9 using crypto/rand.
func GenerateTicketCode(n int) (string, error) {
	base := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// NormalizeTicketCode upper-cases and trims a scanned code.
func NormalizeTicketCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Issue mints the ticket for unit seq of line, or returns the one already
// minted for it.
func (s *Issuer) Issue(ctx context.Context, order *collections.Order, line collections.OrderLine, seq int) (*collections.Ticket, error) {
	orderID := order.ID
	lineID := line.ID
	t := &collections.Ticket{
		OrderID:        &orderID,
		OrderLineID:    &lineID,
		IssueKey:       IssueKey(line.ID, seq),
		TicketTypeID:   line.TicketTypeID,
		EventID:        order.EventID,
		HolderID:       order.BuyerID,
		AttendeeName:   order.BuyerName,
		AttendeeEmail:  order.BuyerEmail,
		TransferStatus: consts.TicketTransferNone,
	}
	return s.mint(ctx, t, "order")
}

func (s *Issuer) mint(ctx context.Context, t *collections.Ticket, kind string) (*collections.Ticket, error) {
	existing, err := s.store.GetTicketByIssueKey(ctx, t.IssueKey)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, consts.ErrTicketNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := GenerateTicketCode(s.codeLen)
		if err != nil {
			return nil, fmt.Errorf("generating ticket code: %w", err)
		}
		taken, err := s.store.TicketCodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		now := s.now()
		t.ID = primitive.NewObjectID()
		t.Code = code
		t.CreatedAt = now
		t.UpdatedAt = now

		err = s.store.InsertTicket(ctx, t)
		switch {
		case err == nil:
			monitoring.TrackTicketIssued(kind)
			return t, nil
		case errors.Is(err, consts.ErrDuplicateIssueKey):
			// A concurrent retry minted this unit first.
			return s.store.GetTicketByIssueKey(ctx, t.IssueKey)
		case errors.Is(err, consts.ErrDuplicateTicketCode):
			logrus.WithField("issue_key", t.IssueKey).Warn("ticket code collision, regenerating")
			continue
		default:
			return nil, err
		}
	}
	return nil, consts.ErrCodeSpaceExhausted
}

type ComplimentaryRequest struct {
	EventID        primitive.ObjectID
	TicketTypeID   primitive.ObjectID
	OrganizerID    primitive.ObjectID
	RecipientID    primitive.ObjectID
	RecipientName  string
	RecipientEmail string
}

// IssueComplimentary mints a ticket outside any order. The unit is held
// before the ticket is minted and only committed afterwards, so a failed
// mint gives the unit back and a retry does not take a second one.
func (s *Issuer) IssueComplimentary(ctx context.Context, req ComplimentaryRequest) (*collections.Ticket, error) {
	event, err := s.store.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != req.OrganizerID {
		return nil, consts.ErrNotEventOrganizer
	}
	if event.Status != consts.EventPublished {
		return nil, consts.ErrEventNotOnSale
	}
	tt, err := s.store.GetTicketType(ctx, req.TicketTypeID)
	if err != nil {
		return nil, err
	}
	if tt.EventID != event.ID {
		return nil, consts.ErrTicketTypeNotInEvent
	}

	res, err := s.inventory.Reserve(ctx, ReserveRequest{
		TicketTypeID:  tt.ID,
		Quantity:      1,
		Complimentary: true,
	})
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("reservation_id", res.ID.Hex())

	t := &collections.Ticket{
		IssueKey:       complimentaryIssueKey(res.ID),
		TicketTypeID:   tt.ID,
		EventID:        event.ID,
		HolderID:       req.RecipientID,
		AttendeeName:   req.RecipientName,
		AttendeeEmail:  strings.ToLower(strings.TrimSpace(req.RecipientEmail)),
		TransferStatus: consts.TicketTransferNone,
		Complimentary:  true,
	}
	minted, err := s.mint(ctx, t, "complimentary")
	if err != nil {
		if relErr := s.inventory.Release(ctx, res.ID); relErr != nil {
			log.WithError(relErr).Error("releasing complimentary hold")
		}
		return nil, err
	}

	if err := s.inventory.Commit(ctx, res.ID); err != nil {
		// The ticket exists and its unit is still held; the reservation
		// sweep commits it.
		log.WithError(err).Warn("complimentary hold left uncommitted")
	}
	return minted, nil
}

// SettleComplimentary commits a leftover complimentary hold whose ticket
// was minted. It reports whether the hold must be kept.
func (s *Issuer) SettleComplimentary(ctx context.Context, reservationID primitive.ObjectID) (bool, error) {
	_, err := s.store.GetTicketByIssueKey(ctx, complimentaryIssueKey(reservationID))
	if errors.Is(err, consts.ErrTicketNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.inventory.Commit(ctx, reservationID); err != nil {
		return false, err
	}
	return true, nil
}

// HeldTicket returns a ticket the account currently holds.
func (s *Issuer) HeldTicket(ctx context.Context, id, holderID primitive.ObjectID) (*collections.Ticket, error) {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.HolderID != holderID {
		return nil, consts.ErrNotTicketHolder
	}
	return t, nil
}

func (s *Issuer) TicketsOf(ctx context.Context, holderID primitive.ObjectID) ([]collections.Ticket, error) {
	return s.store.ListTicketsByHolder(ctx, holderID)
}

func (s *Issuer) TicketsForOrder(ctx context.Context, orderID primitive.ObjectID) ([]collections.Ticket, error) {
	return s.store.ListTicketsByOrder(ctx, orderID)
}
