package service

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, kind string, _ map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	return n.err
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, k := range n.kinds {
		if k == kind {
			c++
		}
	}
	return c
}

type mockCapture struct {
	mock.Mock
}

func (m *mockCapture) Name() string {
	return "mockpay"
}

func (m *mockCapture) StartCapture(_ context.Context, order *collections.Order, clientIP string) (string, error) {
	args := m.Called(order.ID, clientIP)
	return args.String(0), args.Error(1)
}

type testEnv struct {
	ctx       context.Context
	store     *memStore
	clock     *fakeClock
	notifier  *recordingNotifier
	inventory *Inventory
	issuer    *Issuer
	checkout  *Checkout
	checkIn   *CheckIn
	transfers *Transfers
	catalog   *Catalog

	organizer primitive.ObjectID
	event     *collections.Event
}

const orderTTL = 30 * time.Minute

func newTestEnv(t *testing.T, providers ...PaymentCapture) *testEnv {
	t.Helper()

	store := newMemStore()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}

	inventory := NewInventory(store, orderTTL)
	inventory.now = clock.Now
	issuer := NewIssuer(store, inventory, MinTicketCodeLen)
	issuer.now = clock.Now
	checkout := NewCheckout(store, inventory, issuer, notifier, CheckoutConfig{
		FeePercent: decimal.NewFromInt(5),
		OrderTTL:   orderTTL,
		Currency:   "VND",
	}, providers...)
	checkout.now = clock.Now
	checkIn := NewCheckIn(store)
	checkIn.now = clock.Now
	transfers := NewTransfers(store, notifier)
	transfers.now = clock.Now
	catalog := NewCatalog(store, "VND")
	catalog.now = clock.Now

	env := &testEnv{
		ctx:       context.Background(),
		store:     store,
		clock:     clock,
		notifier:  notifier,
		inventory: inventory,
		issuer:    issuer,
		checkout:  checkout,
		checkIn:   checkIn,
		transfers: transfers,
		catalog:   catalog,
		organizer: primitive.NewObjectID(),
	}
	env.event = env.publishedEvent(t)
	return env
}

func (e *testEnv) publishedEvent(t *testing.T) *collections.Event {
	t.Helper()
	start := e.clock.Now().Add(7 * 24 * time.Hour)
	ev, err := e.catalog.CreateEvent(e.ctx, EventInput{
		OrganizerID: e.organizer,
		Title:       "Đêm Nhạc Mùa Xuân",
		StartAt:     start,
		EndAt:       start.Add(3 * time.Hour),
		VenueName:   "Nhà hát lớn",
	})
	require.NoError(t, err)
	ev, err = e.catalog.PublishEvent(e.ctx, ev.ID, e.organizer)
	require.NoError(t, err)
	return ev
}

func (e *testEnv) addTicketType(t *testing.T, price string, quantity, maxPerOrder int) *collections.TicketType {
	t.Helper()
	return e.addTicketTypeTo(t, e.event.ID, price, quantity, maxPerOrder)
}

func (e *testEnv) addTicketTypeTo(t *testing.T, eventID primitive.ObjectID, price string, quantity, maxPerOrder int) *collections.TicketType {
	t.Helper()
	tt, err := e.catalog.CreateTicketType(e.ctx, e.organizer, TicketTypeInput{
		EventID:     eventID,
		Name:        "General",
		Price:       decimal.RequireFromString(price),
		Quantity:    quantity,
		MaxPerOrder: maxPerOrder,
	})
	require.NoError(t, err)
	return tt
}

func (e *testEnv) ticketType(t *testing.T, id primitive.ObjectID) *collections.TicketType {
	t.Helper()
	tt, err := e.store.GetTicketType(e.ctx, id)
	require.NoError(t, err)
	return tt
}

func newAccount(email string) Account {
	return Account{ID: primitive.NewObjectID(), Email: email, Name: email}
}

func (e *testEnv) order(t *testing.T, buyer Account, lines ...LineItem) *collections.Order {
	t.Helper()
	o, err := e.checkout.CreateOrder(e.ctx, CreateOrderInput{
		BuyerID:    buyer.ID,
		BuyerEmail: buyer.Email,
		BuyerName:  buyer.Name,
		EventID:    e.event.ID,
		Lines:      lines,
	})
	require.NoError(t, err)
	return o
}

// buyTicket runs a one-unit purchase to completion and returns the ticket.
func (e *testEnv) buyTicket(t *testing.T, buyer Account, tt *collections.TicketType) *collections.Ticket {
	t.Helper()
	o := e.order(t, buyer, LineItem{TicketTypeID: tt.ID, Quantity: 1})
	_, err := e.checkout.ConfirmPayment(e.ctx, o.ID, "ref-"+o.ID.Hex())
	require.NoError(t, err)
	tickets, err := e.store.ListTicketsByOrder(e.ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	return &tickets[0]
}

func (e *testEnv) reservationStatus(t *testing.T, id primitive.ObjectID) consts.ReservationStatus {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	r, ok := e.store.reservations[id]
	require.True(t, ok)
	return r.Status
}
