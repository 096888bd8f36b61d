package service

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore mirrors the conditional writes of MongoStore behind one mutex.
type memStore struct {
	mu           sync.Mutex
	events       map[primitive.ObjectID]*collections.Event
	ticketTypes  map[primitive.ObjectID]*collections.TicketType
	reservations map[primitive.ObjectID]*collections.Reservation
	orders       map[primitive.ObjectID]*collections.Order
	coupons      map[primitive.ObjectID]*collections.Coupon
	tickets      map[primitive.ObjectID]*collections.Ticket
	transfers    map[primitive.ObjectID]*collections.TicketTransfer

	// insertTicketErr, when set, fails the next n ticket inserts.
	insertTicketErr   error
	insertTicketFails int

	// markUsedMisses makes the next n MarkTicketUsed calls miss.
	markUsedMisses int
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		events:       map[primitive.ObjectID]*collections.Event{},
		ticketTypes:  map[primitive.ObjectID]*collections.TicketType{},
		reservations: map[primitive.ObjectID]*collections.Reservation{},
		orders:       map[primitive.ObjectID]*collections.Order{},
		coupons:      map[primitive.ObjectID]*collections.Coupon{},
		tickets:      map[primitive.ObjectID]*collections.Ticket{},
		transfers:    map[primitive.ObjectID]*collections.TicketTransfer{},
	}
}

func copyOrder(o *collections.Order) *collections.Order {
	c := *o
	c.Lines = append([]collections.OrderLine(nil), o.Lines...)
	return &c
}

// Inventory

func (m *memStore) GetTicketType(_ context.Context, id primitive.ObjectID) (*collections.TicketType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tt, ok := m.ticketTypes[id]
	if !ok {
		return nil, consts.ErrTicketTypeNotFound
	}
	c := *tt
	return &c, nil
}

func (m *memStore) HoldCapacity(_ context.Context, r *collections.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tt, ok := m.ticketTypes[r.TicketTypeID]
	if !ok || tt.QuantitySold+tt.QuantityHeld+r.Quantity > tt.QuantityAvailable {
		return consts.ErrOutOfStock
	}
	tt.QuantityHeld += r.Quantity
	c := *r
	m.reservations[r.ID] = &c
	return nil
}

func (m *memStore) CommitReservation(_ context.Context, id primitive.ObjectID, now time.Time) (*collections.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, consts.ErrReservationNotFound
	}
	switch r.Status {
	case consts.ReservationCommitted:
		c := *r
		return &c, nil
	case consts.ReservationReleased:
		return nil, consts.ErrReservationReleased
	}
	r.Status = consts.ReservationCommitted
	r.CommittedAt = &now
	tt := m.ticketTypes[r.TicketTypeID]
	tt.QuantityHeld -= r.Quantity
	tt.QuantitySold += r.Quantity
	c := *r
	return &c, nil
}

func (m *memStore) ReleaseReservation(_ context.Context, id primitive.ObjectID, now time.Time) (*collections.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, consts.ErrReservationNotFound
	}
	switch r.Status {
	case consts.ReservationReleased:
		c := *r
		return &c, nil
	case consts.ReservationCommitted:
		return nil, consts.ErrInvalidStatusTransition
	}
	r.Status = consts.ReservationReleased
	r.ReleasedAt = &now
	m.ticketTypes[r.TicketTypeID].QuantityHeld -= r.Quantity
	c := *r
	return &c, nil
}

func (m *memStore) HeldReservationsExpiredBy(_ context.Context, now time.Time, limit int) ([]collections.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []collections.Reservation{}
	for _, r := range m.reservations {
		if r.Status == consts.ReservationHeld && !r.ExpiresAt.After(now) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Events

func (m *memStore) InsertEvent(_ context.Context, e *collections.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *e
	m.events[e.ID] = &c
	return nil
}

func (m *memStore) GetEvent(_ context.Context, id primitive.ObjectID) (*collections.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || !e.DeletedAt.IsZero() {
		return nil, consts.ErrEventNotFound
	}
	c := *e
	return &c, nil
}

func (m *memStore) ListPublishedEvents(_ context.Context) ([]collections.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []collections.Event{}
	for _, e := range m.events {
		if e.Status == consts.EventPublished && e.DeletedAt.IsZero() {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Schedule.StartAt.Before(out[j].Schedule.StartAt) })
	return out, nil
}

func (m *memStore) SetEventStatus(_ context.Context, id primitive.ObjectID, from []consts.EventStatus, to consts.EventStatus, now time.Time) (*collections.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || !e.DeletedAt.IsZero() {
		return nil, consts.ErrEventNotFound
	}
	for _, f := range from {
		if e.Status == f {
			e.Status = to
			e.UpdatedAt = now
			c := *e
			return &c, nil
		}
	}
	return nil, consts.ErrInvalidStatusTransition
}

func (m *memStore) SetEventStaff(_ context.Context, id, staffID primitive.ObjectID, assigned bool, now time.Time) (*collections.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || !e.DeletedAt.IsZero() {
		return nil, consts.ErrEventNotFound
	}
	staff := []primitive.ObjectID{}
	for _, s := range e.StaffIDs {
		if s != staffID {
			staff = append(staff, s)
		}
	}
	if assigned {
		staff = append(staff, staffID)
	}
	e.StaffIDs = staff
	e.UpdatedAt = now
	c := *e
	c.StaffIDs = append([]primitive.ObjectID(nil), staff...)
	return &c, nil
}

func (m *memStore) DeleteEvent(_ context.Context, id primitive.ObjectID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || !e.DeletedAt.IsZero() || e.Status == consts.EventPublished {
		return errPreconditionFailed
	}
	e.DeletedAt = now
	return nil
}

func (m *memStore) InsertTicketType(_ context.Context, tt *collections.TicketType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *tt
	m.ticketTypes[tt.ID] = &c
	return nil
}

func (m *memStore) ListTicketTypes(_ context.Context, eventID primitive.ObjectID) ([]collections.TicketType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []collections.TicketType{}
	for _, tt := range m.ticketTypes {
		if tt.EventID == eventID {
			out = append(out, *tt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) IncreaseCapacity(_ context.Context, id primitive.ObjectID, capacity int, now time.Time) (*collections.TicketType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tt, ok := m.ticketTypes[id]
	if !ok {
		return nil, consts.ErrTicketTypeNotFound
	}
	if capacity < tt.QuantityAvailable {
		return nil, consts.ErrCapacityDecrease
	}
	tt.QuantityAvailable = capacity
	tt.UpdatedAt = now
	c := *tt
	return &c, nil
}

func (m *memStore) SetTicketTypeActive(_ context.Context, id primitive.ObjectID, active bool, now time.Time) (*collections.TicketType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tt, ok := m.ticketTypes[id]
	if !ok {
		return nil, consts.ErrTicketTypeNotFound
	}
	tt.Active = active
	tt.UpdatedAt = now
	c := *tt
	return &c, nil
}

// Orders

func (m *memStore) InsertOrder(_ context.Context, o *collections.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = copyOrder(o)
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id primitive.ObjectID) (*collections.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, consts.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (m *memStore) MarkOrderPaid(_ context.Context, id primitive.ObjectID, ref string, now time.Time) (*collections.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, false, consts.ErrOrderNotFound
	}
	switch o.Status {
	case consts.OrderPaid:
		return copyOrder(o), false, nil
	case consts.OrderPending:
		o.Status = consts.OrderPaid
		o.PaymentRef = ref
		o.PaidAt = &now
		return copyOrder(o), true, nil
	}
	return copyOrder(o), false, consts.ErrOrderNotPending
}

func (m *memStore) CancelOrder(_ context.Context, id primitive.ObjectID, now time.Time) (*collections.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, false, consts.ErrOrderNotFound
	}
	switch o.Status {
	case consts.OrderCancelled:
		return copyOrder(o), false, nil
	case consts.OrderPaid:
		return copyOrder(o), false, consts.ErrOrderAlreadyPaid
	case consts.OrderPending:
		o.Status = consts.OrderCancelled
		o.CancelledAt = &now
		return copyOrder(o), true, nil
	}
	return copyOrder(o), false, consts.ErrOrderNotPending
}

func (m *memStore) SetOrderProvider(_ context.Context, id primitive.ObjectID, provider string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != consts.OrderPending {
		return consts.ErrOrderNotPending
	}
	o.PaymentProvider = provider
	return nil
}

func (m *memStore) PendingOrdersExpiredBy(_ context.Context, now time.Time, limit int) ([]collections.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []collections.Order{}
	for _, o := range m.orders {
		if o.Status == consts.OrderPending && !o.ExpiresAt.After(now) {
			out = append(out, *copyOrder(o))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkOrderFulfilled(_ context.Context, id primitive.ObjectID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return consts.ErrOrderNotFound
	}
	if o.Status == consts.OrderPaid && o.FulfilledAt == nil {
		o.FulfilledAt = &now
	}
	return nil
}

func (m *memStore) UnfulfilledPaidOrders(_ context.Context, paidBy time.Time, limit int) ([]collections.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []collections.Order{}
	for _, o := range m.orders {
		if o.Status == consts.OrderPaid && o.FulfilledAt == nil && o.PaidAt != nil && !o.PaidAt.After(paidBy) {
			out = append(out, *copyOrder(o))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListOrdersByBuyer(_ context.Context, buyerID primitive.ObjectID) ([]collections.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []collections.Order{}
	for _, o := range m.orders {
		if o.BuyerID == buyerID {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

// Coupons

func (m *memStore) ListCouponsByOrganizer(_ context.Context, organizerID primitive.ObjectID) ([]collections.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []collections.Coupon{}
	for _, c := range m.coupons {
		if c.OrganizerID == organizerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) InsertCoupon(_ context.Context, c *collections.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.coupons {
		if existing.OrganizerID == c.OrganizerID && existing.Code == c.Code {
			return consts.ErrDuplicateCouponCode
		}
	}
	cp := *c
	m.coupons[c.ID] = &cp
	return nil
}

func (m *memStore) GetCouponByCode(_ context.Context, organizerID primitive.ObjectID, code string) (*collections.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.coupons {
		if c.OrganizerID == organizerID && c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, consts.ErrCouponNotFound
}

func (m *memStore) RedeemCoupon(_ context.Context, orderID, couponID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return consts.ErrOrderNotFound
	}
	if o.CouponRedeemed {
		return nil
	}
	o.CouponRedeemed = true
	c := m.coupons[couponID]
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return consts.ErrCouponUsageCapReached
	}
	c.UsedCount++
	return nil
}

// Tickets

func (m *memStore) InsertTicket(_ context.Context, t *collections.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertTicketFails > 0 {
		m.insertTicketFails--
		return m.insertTicketErr
	}
	for _, existing := range m.tickets {
		if existing.IssueKey == t.IssueKey {
			return consts.ErrDuplicateIssueKey
		}
		if existing.Code == t.Code {
			return consts.ErrDuplicateTicketCode
		}
	}
	c := *t
	m.tickets[t.ID] = &c
	return nil
}

func (m *memStore) findTicket(match func(*collections.Ticket) bool) (*collections.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if match(t) {
			c := *t
			return &c, nil
		}
	}
	return nil, consts.ErrTicketNotFound
}

func (m *memStore) GetTicket(_ context.Context, id primitive.ObjectID) (*collections.Ticket, error) {
	return m.findTicket(func(t *collections.Ticket) bool { return t.ID == id })
}

func (m *memStore) GetTicketByIssueKey(_ context.Context, key string) (*collections.Ticket, error) {
	return m.findTicket(func(t *collections.Ticket) bool { return t.IssueKey == key })
}

func (m *memStore) GetTicketByCode(_ context.Context, code string) (*collections.Ticket, error) {
	return m.findTicket(func(t *collections.Ticket) bool { return t.Code == code })
}

func (m *memStore) TicketCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := m.GetTicketByCode(ctx, code)
	return err == nil, nil
}

func (m *memStore) MarkTicketUsed(_ context.Context, code string, eventID primitive.ObjectID, now time.Time) (*collections.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markUsedMisses > 0 {
		m.markUsedMisses--
		return nil, errPreconditionFailed
	}
	for _, t := range m.tickets {
		if t.Code == code && t.EventID == eventID && !t.IsUsed && t.TransferStatus != consts.TicketTransferPending {
			t.IsUsed = true
			t.UsedAt = &now
			c := *t
			return &c, nil
		}
	}
	return nil, errPreconditionFailed
}

func (m *memStore) listTickets(match func(*collections.Ticket) bool) []collections.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []collections.Ticket{}
	for _, t := range m.tickets {
		if match(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueKey < out[j].IssueKey })
	return out
}

func (m *memStore) ListTicketsByHolder(_ context.Context, holderID primitive.ObjectID) ([]collections.Ticket, error) {
	return m.listTickets(func(t *collections.Ticket) bool { return t.HolderID == holderID }), nil
}

func (m *memStore) ListTicketsByOrder(_ context.Context, orderID primitive.ObjectID) ([]collections.Ticket, error) {
	return m.listTickets(func(t *collections.Ticket) bool { return t.OrderID != nil && *t.OrderID == orderID }), nil
}

// Transfers

func (m *memStore) BeginTransfer(_ context.Context, tr *collections.TicketTransfer, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[tr.TicketID]
	if !ok || t.HolderID != tr.FromAccountID || t.IsUsed || t.TransferStatus != consts.TicketTransferNone {
		return errPreconditionFailed
	}
	for _, existing := range m.transfers {
		if existing.TicketID == tr.TicketID && existing.Status == consts.TransferPending {
			return consts.ErrTransferAlreadyPending
		}
	}
	t.TransferStatus = consts.TicketTransferPending
	t.UpdatedAt = now
	c := *tr
	m.transfers[tr.ID] = &c
	return nil
}

func (m *memStore) GetTransfer(_ context.Context, id primitive.ObjectID) (*collections.TicketTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.transfers[id]
	if !ok {
		return nil, consts.ErrTransferNotFound
	}
	c := *tr
	return &c, nil
}

func (m *memStore) ResolveTransfer(_ context.Context, id primitive.ObjectID, to consts.TransferStatus, holder *TransferHolder, now time.Time) (*collections.TicketTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.transfers[id]
	if !ok {
		return nil, consts.ErrTransferNotFound
	}
	if tr.Status != consts.TransferPending {
		return nil, consts.ErrTransferAlreadyResolved
	}
	t, ok := m.tickets[tr.TicketID]
	if !ok || t.TransferStatus != consts.TicketTransferPending {
		return nil, errPreconditionFailed
	}

	tr.Status = to
	tr.ResolvedAt = &now
	if to == consts.TransferAccepted {
		accountID := holder.AccountID
		tr.ToAccountID = &accountID
		t.HolderID = holder.AccountID
		t.AttendeeName = holder.Name
		t.AttendeeEmail = holder.Email
		t.TransferStatus = consts.TicketTransferCompleted
	} else {
		t.TransferStatus = consts.TicketTransferNone
	}
	c := *tr
	return &c, nil
}

func (m *memStore) ListPendingTransfersTo(_ context.Context, email string) ([]collections.TicketTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []collections.TicketTransfer{}
	for _, tr := range m.transfers {
		if tr.ToEmail == email && tr.Status == consts.TransferPending {
			out = append(out, *tr)
		}
	}
	return out, nil
}
