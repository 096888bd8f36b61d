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

const sweepBatchSize = 200

// Inventory is the ledger for ticket type capacity. It is the only writer
// of quantity_sold and quantity_held.
type Inventory struct {
	store InventoryStore
	hold  time.Duration
	now   func() time.Time
}

func NewInventory(store InventoryStore, hold time.Duration) *Inventory {
	return &Inventory{store: store, hold: hold, now: time.Now}
}

type ReserveRequest struct {
	TicketTypeID primitive.ObjectID
	OrderID      *primitive.ObjectID
	Quantity     int
	// Complimentary holds skip the sales window and per-order limit. They
	// still count against capacity.
	Complimentary bool
	ExpiresAt     time.Time
}

// CheckReservable runs the checks that do not depend on remaining capacity.
func (s *Inventory) CheckReservable(tt *collections.TicketType, quantity int, complimentary bool) error {
	if quantity <= 0 {
		return consts.ErrInvalidQuantity
	}
	if !tt.Active {
		return consts.ErrTicketTypeInactive
	}
	if complimentary {
		return nil
	}
	if !tt.OnSale(s.now()) {
		return consts.ErrSalesWindowClosed
	}
	if tt.MaxPerOrder > 0 && quantity > tt.MaxPerOrder {
		return consts.ErrOrderLimitExceeded
	}
	return nil
}

// Reserve places a soft hold for req.Quantity units.
func (s *Inventory) Reserve(ctx context.Context, req ReserveRequest) (*collections.Reservation, error) {
	tt, err := s.store.GetTicketType(ctx, req.TicketTypeID)
	if err != nil {
		return nil, err
	}
	if err := s.CheckReservable(tt, req.Quantity, req.Complimentary); err != nil {
		monitoring.TrackReservation("rejected")
		return nil, err
	}

	now := s.now()
	expiresAt := req.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.hold)
	}
	r := &collections.Reservation{
		ID:           primitive.NewObjectID(),
		TicketTypeID: tt.ID,
		EventID:      tt.EventID,
		OrderID:      req.OrderID,
		Quantity:     req.Quantity,
		Status:       consts.ReservationHeld,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
	}
	if err := s.store.HoldCapacity(ctx, r); err != nil {
		if errors.Is(err, consts.ErrOutOfStock) {
			monitoring.TrackReservation("out_of_stock")
			return nil, err
		}
		return nil, fmt.Errorf("holding capacity: %w", err)
	}

	monitoring.TrackReservation("held")
	return r, nil
}

// Commit turns a hold into sold units. Committing twice is a no-op.
func (s *Inventory) Commit(ctx context.Context, reservationID primitive.ObjectID) error {
	_, err := s.store.CommitReservation(ctx, reservationID, s.now())
	return err
}

// Release returns held units to the pool. Releasing a released or unknown
// reservation is not an error.
func (s *Inventory) Release(ctx context.Context, reservationID primitive.ObjectID) error {
	_, err := s.store.ReleaseReservation(ctx, reservationID, s.now())
	if errors.Is(err, consts.ErrReservationNotFound) {
		return nil
	}
	return err
}

// ExpireReservations releases held reservations past their deadline.
// keep is asked about each one and may veto the release.
func (s *Inventory) ExpireReservations(ctx context.Context, keep func(context.Context, *collections.Reservation) (bool, error)) (int, error) {
	expired, err := s.store.HeldReservationsExpiredBy(ctx, s.now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range expired {
		r := &expired[i]
		if keep != nil {
			skip, err := keep(ctx, r)
			if err != nil {
				logrus.WithError(err).WithField("reservation_id", r.ID.Hex()).Warn("could not inspect expired reservation")
				continue
			}
			if skip {
				continue
			}
		}
		if err := s.Release(ctx, r.ID); err != nil {
			logrus.WithError(err).WithField("reservation_id", r.ID.Hex()).Error("releasing expired reservation")
			continue
		}
		released++
	}

	monitoring.TrackSwept("reservation", released)
	return released, nil
}
