package service

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"TicketMarket/monitoring"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AlreadyUsedError reports when the ticket was first admitted.
type AlreadyUsedError struct {
	UsedAt time.Time
}

func (e *AlreadyUsedError) Error() string {
	return fmt.Sprintf("ticket already used at %s", e.UsedAt.Format(time.RFC3339))
}

func (e *AlreadyUsedError) Unwrap() error {
	return consts.ErrTicketAlreadyUsed
}

type CheckInResult struct {
	TicketID      primitive.ObjectID `json:"ticket_id"`
	TicketTypeID  primitive.ObjectID `json:"ticket_type_id"`
	Code          string             `json:"code"`
	AttendeeName  string             `json:"attendee_name"`
	AttendeeEmail string             `json:"attendee_email"`
	UsedAt        time.Time          `json:"used_at"`
}

type CheckInStore interface {
	TicketStore
	GetEvent(ctx context.Context, id primitive.ObjectID) (*collections.Event, error)
}

type CheckIn struct {
	store CheckInStore
	now   func() time.Time
}

func NewCheckIn(store CheckInStore) *CheckIn {
	return &CheckIn{store: store, now: time.Now}
}

// CheckIn admits the ticket with code at eventID on behalf of operatorID,
// who has to organize or staff the event. The flip of is_used is a single
// conditional write; the reads after a miss only explain it.
func (s *CheckIn) CheckIn(ctx context.Context, code string, eventID, operatorID primitive.ObjectID) (*CheckInResult, error) {
	code = NormalizeTicketCode(code)
	if code == "" {
		return nil, consts.ErrInvalidTicketCode
	}
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.CanCheckIn(operatorID) {
		return nil, consts.ErrNotEventOrganizer
	}
	log := logrus.WithFields(logrus.Fields{
		"event_id":    eventID.Hex(),
		"operator_id": operatorID.Hex(),
		"code":        code,
	})

	for attempt := 0; attempt < 2; attempt++ {
		t, err := s.store.MarkTicketUsed(ctx, code, eventID, s.now())
		if err == nil {
			monitoring.TrackCheckIn("admitted")
			log.WithField("ticket_id", t.ID.Hex()).Info("ticket checked in")
			return &CheckInResult{
				TicketID:      t.ID,
				TicketTypeID:  t.TicketTypeID,
				Code:          t.Code,
				AttendeeName:  t.AttendeeName,
				AttendeeEmail: t.AttendeeEmail,
				UsedAt:        *t.UsedAt,
			}, nil
		}
		if !errors.Is(err, errPreconditionFailed) {
			return nil, err
		}

		if err = s.diagnose(ctx, code, eventID); err != nil {
			monitoring.TrackCheckIn(checkInResultLabel(err))
			log.WithError(err).Warn("check-in refused")
			return nil, err
		}
	}
	monitoring.TrackCheckIn(checkInResultLabel(consts.ErrCheckInConflict))
	log.Warn("check-in write kept missing")
	return nil, consts.ErrCheckInConflict
}

func (s *CheckIn) diagnose(ctx context.Context, code string, eventID primitive.ObjectID) error {
	t, err := s.store.GetTicketByCode(ctx, code)
	if err != nil {
		return err
	}
	switch {
	case t.EventID != eventID:
		return consts.ErrTicketNotFound
	case t.IsUsed:
		usedAt := time.Time{}
		if t.UsedAt != nil {
			usedAt = *t.UsedAt
		}
		return &AlreadyUsedError{UsedAt: usedAt}
	case t.TransferStatus == consts.TicketTransferPending:
		return consts.ErrTransferPending
	}
	// A transfer was resolved between the write and the read; try again.
	return nil
}

func checkInResultLabel(err error) string {
	switch {
	case errors.Is(err, consts.ErrTicketAlreadyUsed):
		return "already_used"
	case errors.Is(err, consts.ErrTicketNotFound):
		return "not_found"
	case errors.Is(err, consts.ErrTransferPending):
		return "transfer_pending"
	case errors.Is(err, consts.ErrCheckInConflict):
		return "conflict"
	default:
		return "error"
	}
}
