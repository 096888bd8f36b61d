package service

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// errPreconditionFailed is returned by a store when a conditional write
// matched nothing and the caller has to re-read to find out why.
var errPreconditionFailed = errors.New("precondition failed")

type InventoryStore interface {
	GetTicketType(ctx context.Context, id primitive.ObjectID) (*collections.TicketType, error)
	// HoldCapacity inserts the reservation and raises quantity_held in one
	// atomic step, or returns consts.ErrOutOfStock.
	HoldCapacity(ctx context.Context, r *collections.Reservation) error
	// CommitReservation is idempotent: a committed reservation is returned
	// as is. A released one yields consts.ErrReservationReleased.
	CommitReservation(ctx context.Context, id primitive.ObjectID, now time.Time) (*collections.Reservation, error)
	// ReleaseReservation is idempotent for released reservations.
	ReleaseReservation(ctx context.Context, id primitive.ObjectID, now time.Time) (*collections.Reservation, error)
	HeldReservationsExpiredBy(ctx context.Context, now time.Time, limit int) ([]collections.Reservation, error)
}

type EventStore interface {
	InsertEvent(ctx context.Context, e *collections.Event) error
	GetEvent(ctx context.Context, id primitive.ObjectID) (*collections.Event, error)
	// ListPublishedEvents returns published events soonest first.
	ListPublishedEvents(ctx context.Context) ([]collections.Event, error)
	SetEventStatus(ctx context.Context, id primitive.ObjectID, from []consts.EventStatus, to consts.EventStatus, now time.Time) (*collections.Event, error)
	// SetEventStaff adds or removes staffID from the event's staff_ids.
	SetEventStaff(ctx context.Context, id, staffID primitive.ObjectID, assigned bool, now time.Time) (*collections.Event, error)
	// DeleteEvent refuses published events with errPreconditionFailed.
	DeleteEvent(ctx context.Context, id primitive.ObjectID, now time.Time) error

	InsertTicketType(ctx context.Context, tt *collections.TicketType) error
	GetTicketType(ctx context.Context, id primitive.ObjectID) (*collections.TicketType, error)
	ListTicketTypes(ctx context.Context, eventID primitive.ObjectID) ([]collections.TicketType, error)
	// IncreaseCapacity only ever raises quantity_available.
	IncreaseCapacity(ctx context.Context, id primitive.ObjectID, capacity int, now time.Time) (*collections.TicketType, error)
	SetTicketTypeActive(ctx context.Context, id primitive.ObjectID, active bool, now time.Time) (*collections.TicketType, error)
}

type OrderStore interface {
	InsertOrder(ctx context.Context, o *collections.Order) error
	GetOrder(ctx context.Context, id primitive.ObjectID) (*collections.Order, error)
	// MarkOrderPaid moves a pending order to paid. transitioned is false
	// when the order was already paid; any other status is
	// consts.ErrOrderNotPending.
	MarkOrderPaid(ctx context.Context, id primitive.ObjectID, ref string, now time.Time) (order *collections.Order, transitioned bool, err error)
	// CancelOrder moves a pending order to cancelled. transitioned is false
	// when it was already cancelled; a paid order is consts.ErrOrderAlreadyPaid.
	CancelOrder(ctx context.Context, id primitive.ObjectID, now time.Time) (order *collections.Order, transitioned bool, err error)
	SetOrderProvider(ctx context.Context, id primitive.ObjectID, provider string, now time.Time) error
	PendingOrdersExpiredBy(ctx context.Context, now time.Time, limit int) ([]collections.Order, error)
	// MarkOrderFulfilled stamps fulfilled_at on a paid order once its
	// reservations are committed and its tickets minted.
	MarkOrderFulfilled(ctx context.Context, id primitive.ObjectID, now time.Time) error
	// UnfulfilledPaidOrders returns paid orders without fulfilled_at that
	// were paid at or before paidBy.
	UnfulfilledPaidOrders(ctx context.Context, paidBy time.Time, limit int) ([]collections.Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID primitive.ObjectID) ([]collections.Order, error)
}

type CouponStore interface {
	InsertCoupon(ctx context.Context, c *collections.Coupon) error
	GetCouponByCode(ctx context.Context, organizerID primitive.ObjectID, code string) (*collections.Coupon, error)
	ListCouponsByOrganizer(ctx context.Context, organizerID primitive.ObjectID) ([]collections.Coupon, error)
	// RedeemCoupon flags the order as redeemed and bumps used_count once.
	// A second call for the same order is a no-op. When the cap was reached
	// in the meantime the order is still flagged and
	// consts.ErrCouponUsageCapReached is returned.
	RedeemCoupon(ctx context.Context, orderID, couponID primitive.ObjectID) error
}

type TicketStore interface {
	// InsertTicket maps unique index violations to consts.ErrDuplicateIssueKey
	// and consts.ErrDuplicateTicketCode.
	InsertTicket(ctx context.Context, t *collections.Ticket) error
	GetTicket(ctx context.Context, id primitive.ObjectID) (*collections.Ticket, error)
	GetTicketByIssueKey(ctx context.Context, key string) (*collections.Ticket, error)
	GetTicketByCode(ctx context.Context, code string) (*collections.Ticket, error)
	TicketCodeExists(ctx context.Context, code string) (bool, error)
	// MarkTicketUsed flips is_used for an unused ticket of the event that is
	// not mid-transfer, or returns errPreconditionFailed.
	MarkTicketUsed(ctx context.Context, code string, eventID primitive.ObjectID, now time.Time) (*collections.Ticket, error)
	ListTicketsByHolder(ctx context.Context, holderID primitive.ObjectID) ([]collections.Ticket, error)
	ListTicketsByOrder(ctx context.Context, orderID primitive.ObjectID) ([]collections.Ticket, error)
}

// TransferHolder is the new owner written to a ticket on accept.
type TransferHolder struct {
	AccountID primitive.ObjectID
	Name      string
	Email     string
}

type TransferStore interface {
	GetTicket(ctx context.Context, id primitive.ObjectID) (*collections.Ticket, error)
	// BeginTransfer marks the ticket pending and inserts the transfer
	// together. errPreconditionFailed means the ticket changed underneath.
	BeginTransfer(ctx context.Context, t *collections.TicketTransfer, now time.Time) error
	GetTransfer(ctx context.Context, id primitive.ObjectID) (*collections.TicketTransfer, error)
	// ResolveTransfer ends a pending transfer and updates its ticket in one
	// transaction. holder is only used for accepted transfers.
	ResolveTransfer(ctx context.Context, id primitive.ObjectID, to consts.TransferStatus, holder *TransferHolder, now time.Time) (*collections.TicketTransfer, error)
	ListPendingTransfersTo(ctx context.Context, email string) ([]collections.TicketTransfer, error)
}

// Store is everything the services need from persistence.
type Store interface {
	InventoryStore
	EventStore
	OrderStore
	CouponStore
	TicketStore
	TransferStore
}
