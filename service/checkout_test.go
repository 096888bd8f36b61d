package service

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCheckoutHappyPath(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "100.00", 2, 2)
	buyer := newAccount("buyer@example.com")

	o := env.order(t, buyer, LineItem{TicketTypeID: tt.ID, Quantity: 2})
	assert.Equal(t, consts.OrderPending, o.Status)
	assert.True(t, decimal.RequireFromString("200").Equal(o.Subtotal))
	assert.True(t, decimal.RequireFromString("10").Equal(o.Fee))
	assert.True(t, decimal.RequireFromString("210").Equal(o.Total))
	assert.Equal(t, 2, env.ticketType(t, tt.ID).QuantityHeld)

	paid, err := env.checkout.ConfirmPayment(env.ctx, o.ID, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, consts.OrderPaid, paid.Status)

	after := env.ticketType(t, tt.ID)
	assert.Equal(t, 2, after.QuantitySold)
	assert.Zero(t, after.QuantityHeld)
	assert.Zero(t, after.Remaining())

	tickets, err := env.store.ListTicketsByOrder(env.ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.NotEqual(t, tickets[0].Code, tickets[1].Code)
	for _, tk := range tickets {
		assert.Len(t, tk.Code, MinTicketCodeLen)
		assert.Equal(t, buyer.ID, tk.HolderID)
		assert.Equal(t, consts.TicketTransferNone, tk.TransferStatus)
	}

	_, err = env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID: primitive.NewObjectID(),
		EventID: env.event.ID,
		Lines:   []LineItem{{TicketTypeID: tt.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, consts.ErrOutOfStock)
	assert.Equal(t, 1, env.notifier.count(consts.NotifyOrderPaid))
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "50", 5, 5)
	o := env.order(t, newAccount("a@example.com"), LineItem{TicketTypeID: tt.ID, Quantity: 3})

	_, err := env.checkout.ConfirmPayment(env.ctx, o.ID, "txn-1")
	require.NoError(t, err)
	first, err := env.store.ListTicketsByOrder(env.ctx, o.ID)
	require.NoError(t, err)

	_, err = env.checkout.ConfirmPayment(env.ctx, o.ID, "txn-1")
	require.NoError(t, err)
	second, err := env.store.ListTicketsByOrder(env.ctx, o.ID)
	require.NoError(t, err)

	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, env.ticketType(t, tt.ID).QuantitySold)
	assert.Equal(t, 1, env.notifier.count(consts.NotifyOrderPaid))
}

func TestConfirmPaymentConcurrentDeliveries(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "50", 4, 4)
	o := env.order(t, newAccount("a@example.com"), LineItem{TicketTypeID: tt.ID, Quantity: 4})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.checkout.ConfirmPayment(env.ctx, o.ID, "txn-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	tickets, err := env.store.ListTicketsByOrder(env.ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 4)
	assert.Equal(t, 4, env.ticketType(t, tt.ID).QuantitySold)
	assert.Equal(t, 1, env.notifier.count(consts.NotifyOrderPaid))
}

func TestConfirmPaymentRecoversFromPartialIssuance(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "50", 5, 5)
	o := env.order(t, newAccount("a@example.com"), LineItem{TicketTypeID: tt.ID, Quantity: 2})

	storageDown := errors.New("storage unavailable")
	env.store.mu.Lock()
	env.store.insertTicketErr = storageDown
	env.store.insertTicketFails = 1
	env.store.mu.Unlock()

	_, err := env.checkout.ConfirmPayment(env.ctx, o.ID, "txn-1")
	assert.ErrorIs(t, err, storageDown)

	stored, err := env.store.GetOrder(env.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, consts.OrderPaid, stored.Status)

	_, err = env.checkout.ConfirmPayment(env.ctx, o.ID, "txn-1")
	require.NoError(t, err)
	tickets, err := env.store.ListTicketsByOrder(env.ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
	assert.Equal(t, 2, env.ticketType(t, tt.ID).QuantitySold)
}

func TestCreateOrderIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	plenty := env.addTicketType(t, "10", 5, 5)
	scarce := env.addTicketType(t, "20", 1, 1)
	env.store.mu.Lock()
	env.store.ticketTypes[scarce.ID].MaxPerOrder = 5
	env.store.mu.Unlock()

	_, err := env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID: primitive.NewObjectID(),
		EventID: env.event.ID,
		Lines: []LineItem{
			{TicketTypeID: plenty.ID, Quantity: 2},
			{TicketTypeID: scarce.ID, Quantity: 2},
		},
	})

	var cartErr *CartError
	require.ErrorAs(t, err, &cartErr)
	require.Len(t, cartErr.Lines, 1)
	assert.Equal(t, scarce.ID, cartErr.Lines[0].TicketTypeID)
	assert.ErrorIs(t, err, consts.ErrOutOfStock)

	assert.Zero(t, env.ticketType(t, plenty.ID).QuantityHeld)
	assert.Zero(t, env.ticketType(t, scarce.ID).QuantityHeld)
	assert.Empty(t, env.store.orders)
}

func TestCreateOrderReportsEveryBadLine(t *testing.T) {
	env := newTestEnv(t)
	inactive := env.addTicketType(t, "10", 5, 5)
	_, err := env.catalog.SetTicketTypeActive(env.ctx, inactive.ID, env.organizer, false)
	require.NoError(t, err)

	other := env.publishedEvent(t)
	foreign := env.addTicketTypeTo(t, other.ID, "10", 5, 5)
	fine := env.addTicketType(t, "10", 5, 5)

	_, err = env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID: primitive.NewObjectID(),
		EventID: env.event.ID,
		Lines: []LineItem{
			{TicketTypeID: inactive.ID, Quantity: 1},
			{TicketTypeID: fine.ID, Quantity: 1},
			{TicketTypeID: foreign.ID, Quantity: 1},
			{TicketTypeID: primitive.NewObjectID(), Quantity: 1},
		},
	})

	var cartErr *CartError
	require.ErrorAs(t, err, &cartErr)
	assert.Len(t, cartErr.Lines, 3)
	assert.ErrorIs(t, err, consts.ErrTicketTypeInactive)
	assert.ErrorIs(t, err, consts.ErrTicketTypeNotInEvent)
	assert.ErrorIs(t, err, consts.ErrTicketTypeNotFound)
	assert.Zero(t, env.ticketType(t, fine.ID).QuantityHeld)
}

func TestCreateOrderMergesRepeatedLines(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "10", 10, 2)

	_, err := env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID: primitive.NewObjectID(),
		EventID: env.event.ID,
		Lines: []LineItem{
			{TicketTypeID: tt.ID, Quantity: 2},
			{TicketTypeID: tt.ID, Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, consts.ErrOrderLimitExceeded)

	o := env.order(t, newAccount("a@example.com"),
		LineItem{TicketTypeID: tt.ID, Quantity: 1},
		LineItem{TicketTypeID: tt.ID, Quantity: 1},
	)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, 2, o.Lines[0].Quantity)
}

func TestCreateOrderRequiresPublishedEvent(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "10", 10, 2)
	_, err := env.catalog.CancelEvent(env.ctx, env.event.ID, env.organizer)
	require.NoError(t, err)

	_, err = env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID: primitive.NewObjectID(),
		EventID: env.event.ID,
		Lines:   []LineItem{{TicketTypeID: tt.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, consts.ErrEventNotOnSale)

	_, err = env.checkout.CreateOrder(env.ctx, CreateOrderInput{EventID: env.event.ID})
	assert.ErrorIs(t, err, consts.ErrEmptyCart)
}

func TestCouponIsRedeemedOnceAfterPayment(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "100", 10, 5)
	maxUses := 5
	coupon, err := env.catalog.CreateCoupon(env.ctx, CouponInput{
		OrganizerID:  env.organizer,
		Code:         "spring10",
		DiscountType: consts.DiscountPercentage,
		Value:        decimal.NewFromInt(10),
		MaxUses:      &maxUses,
	})
	require.NoError(t, err)

	o, err := env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID:    primitive.NewObjectID(),
		EventID:    env.event.ID,
		Lines:      []LineItem{{TicketTypeID: tt.ID, Quantity: 2}},
		CouponCode: " Spring10 ",
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("20").Equal(o.Discount))
	assert.True(t, decimal.RequireFromString("9").Equal(o.Fee))
	assert.True(t, decimal.RequireFromString("189").Equal(o.Total))

	env.store.mu.Lock()
	assert.Zero(t, env.store.coupons[coupon.ID].UsedCount, "abandoned carts must not consume uses")
	env.store.mu.Unlock()

	_, err = env.checkout.ConfirmPayment(env.ctx, o.ID, "txn")
	require.NoError(t, err)
	_, err = env.checkout.ConfirmPayment(env.ctx, o.ID, "txn")
	require.NoError(t, err)

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	assert.Equal(t, 1, env.store.coupons[coupon.ID].UsedCount)
}

func TestCouponCapReachedAfterOrderKeepsDiscount(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "100", 10, 5)
	maxUses := 1
	_, err := env.catalog.CreateCoupon(env.ctx, CouponInput{
		OrganizerID:  env.organizer,
		Code:         "ONCE",
		DiscountType: consts.DiscountFixed,
		Value:        decimal.NewFromInt(30),
		MaxUses:      &maxUses,
	})
	require.NoError(t, err)

	create := func() *collections.Order {
		o, err := env.checkout.CreateOrder(env.ctx, CreateOrderInput{
			BuyerID:    primitive.NewObjectID(),
			EventID:    env.event.ID,
			Lines:      []LineItem{{TicketTypeID: tt.ID, Quantity: 1}},
			CouponCode: "ONCE",
		})
		require.NoError(t, err)
		return o
	}
	first, second := create(), create()

	_, err = env.checkout.ConfirmPayment(env.ctx, first.ID, "a")
	require.NoError(t, err)
	paid, err := env.checkout.ConfirmPayment(env.ctx, second.ID, "b")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("30").Equal(paid.Discount))

	_, err = env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID:    primitive.NewObjectID(),
		EventID:    env.event.ID,
		Lines:      []LineItem{{TicketTypeID: tt.ID, Quantity: 1}},
		CouponCode: "ONCE",
	})
	assert.ErrorIs(t, err, consts.ErrCouponUsageCapReached)
}

func TestCreateOrderRejectsBadCouponBeforeReserving(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "100", 10, 5)
	until := env.clock.Now().Add(time.Hour)
	_, err := env.catalog.CreateCoupon(env.ctx, CouponInput{
		OrganizerID:  env.organizer,
		Code:         "SHORT",
		DiscountType: consts.DiscountFixed,
		Value:        decimal.NewFromInt(10),
		ValidUntil:   &until,
	})
	require.NoError(t, err)
	env.clock.Advance(2 * time.Hour)

	_, err = env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID:    primitive.NewObjectID(),
		EventID:    env.event.ID,
		Lines:      []LineItem{{TicketTypeID: tt.ID, Quantity: 1}},
		CouponCode: "SHORT",
	})
	assert.ErrorIs(t, err, consts.ErrCouponExpired)

	_, err = env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID:    primitive.NewObjectID(),
		EventID:    env.event.ID,
		Lines:      []LineItem{{TicketTypeID: tt.ID, Quantity: 1}},
		CouponCode: "NOPE",
	})
	assert.ErrorIs(t, err, consts.ErrCouponNotFound)
	assert.Zero(t, env.ticketType(t, tt.ID).QuantityHeld)
}

func TestFreeOrderIsConfirmedImmediately(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "50", 10, 5)
	_, err := env.catalog.CreateCoupon(env.ctx, CouponInput{
		OrganizerID:  env.organizer,
		Code:         "FREE",
		DiscountType: consts.DiscountFixed,
		Value:        decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	o, err := env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID:    primitive.NewObjectID(),
		EventID:    env.event.ID,
		Lines:      []LineItem{{TicketTypeID: tt.ID, Quantity: 1}},
		CouponCode: "FREE",
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("50").Equal(o.Discount))
	assert.True(t, o.Total.IsZero())
	assert.Equal(t, consts.OrderPaid, o.Status)
	assert.Equal(t, consts.PaymentProviderFree, o.PaymentProvider)

	tickets, err := env.store.ListTicketsByOrder(env.ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestAbandonedCheckoutReleasesInventory(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "100", 3, 3)
	before := env.ticketType(t, tt.ID).Remaining()

	o := env.order(t, newAccount("a@example.com"), LineItem{TicketTypeID: tt.ID, Quantity: 2})
	assert.Equal(t, before-2, env.ticketType(t, tt.ID).Remaining())

	env.clock.Advance(orderTTL - time.Second)
	n, err := env.checkout.ExpirePendingOrders(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(2 * time.Second)
	n, err = env.checkout.ExpirePendingOrders(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, before, env.ticketType(t, tt.ID).Remaining())
	stored, err := env.store.GetOrder(env.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, consts.OrderCancelled, stored.Status)

	_, err = env.checkout.ConfirmPayment(env.ctx, o.ID, "late")
	assert.ErrorIs(t, err, consts.ErrOrderNotPending)
	tickets, err := env.store.ListTicketsByOrder(env.ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestGetOrderExpiresLazily(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "100", 3, 3)
	o := env.order(t, newAccount("a@example.com"), LineItem{TicketTypeID: tt.ID, Quantity: 1})

	env.clock.Advance(orderTTL)
	got, err := env.checkout.GetOrder(env.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, consts.OrderCancelled, got.Status)
	assert.Zero(t, env.ticketType(t, tt.ID).QuantityHeld)
}

func TestExpireOrCancelTransitions(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "100", 5, 5)
	buyer := newAccount("a@example.com")

	paid := env.order(t, buyer, LineItem{TicketTypeID: tt.ID, Quantity: 1})
	_, err := env.checkout.ConfirmPayment(env.ctx, paid.ID, "txn")
	require.NoError(t, err)
	_, err = env.checkout.ExpireOrCancel(env.ctx, paid.ID)
	assert.ErrorIs(t, err, consts.ErrOrderAlreadyPaid)

	pending := env.order(t, buyer, LineItem{TicketTypeID: tt.ID, Quantity: 2})
	_, err = env.checkout.CancelOrder(env.ctx, pending.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, consts.ErrNotOrderOwner)

	cancelled, err := env.checkout.CancelOrder(env.ctx, pending.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, consts.OrderCancelled, cancelled.Status)
	_, err = env.checkout.ExpireOrCancel(env.ctx, pending.ID)
	require.NoError(t, err)

	after := env.ticketType(t, tt.ID)
	assert.Equal(t, 1, after.QuantitySold)
	assert.Zero(t, after.QuantityHeld)

	_, err = env.checkout.ExpireOrCancel(env.ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, consts.ErrOrderNotFound)
}

func TestPaymentBeatsExpirySweep(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "100", 5, 5)
	o := env.order(t, newAccount("a@example.com"), LineItem{TicketTypeID: tt.ID, Quantity: 1})

	env.clock.Advance(orderTTL + time.Minute)
	_, err := env.checkout.ConfirmPayment(env.ctx, o.ID, "slow-bank")
	require.NoError(t, err)

	n, err := env.checkout.ExpirePendingOrders(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = env.checkout.ExpireReservations(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, env.ticketType(t, tt.ID).QuantitySold)
}

func TestExpireReservationsReleasesOrphans(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "100", 5, 5)

	pending := env.order(t, newAccount("a@example.com"), LineItem{TicketTypeID: tt.ID, Quantity: 1})
	missing := primitive.NewObjectID()
	orphan, err := env.inventory.Reserve(env.ctx, ReserveRequest{TicketTypeID: tt.ID, Quantity: 2, OrderID: &missing})
	require.NoError(t, err)

	env.clock.Advance(orderTTL + time.Second)
	n, err := env.checkout.ExpireReservations(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, consts.ReservationReleased, env.reservationStatus(t, orphan.ID))
	assert.Equal(t, consts.ReservationHeld, env.reservationStatus(t, pending.Lines[0].ReservationID))
}

func TestExpireReservationsSettlesComplimentaryHolds(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "100", 5, 5)

	minted, err := env.inventory.Reserve(env.ctx, ReserveRequest{TicketTypeID: tt.ID, Quantity: 1, Complimentary: true})
	require.NoError(t, err)
	_, err = env.issuer.mint(env.ctx, &collections.Ticket{
		IssueKey:     complimentaryIssueKey(minted.ID),
		TicketTypeID: tt.ID,
		EventID:      env.event.ID,
		HolderID:     primitive.NewObjectID(),
	}, "complimentary")
	require.NoError(t, err)
	abandoned, err := env.inventory.Reserve(env.ctx, ReserveRequest{TicketTypeID: tt.ID, Quantity: 1, Complimentary: true})
	require.NoError(t, err)

	env.clock.Advance(orderTTL + time.Second)
	n, err := env.checkout.ExpireReservations(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, consts.ReservationCommitted, env.reservationStatus(t, minted.ID))
	assert.Equal(t, consts.ReservationReleased, env.reservationStatus(t, abandoned.ID))

	after := env.ticketType(t, tt.ID)
	assert.Equal(t, 1, after.QuantitySold)
	assert.Zero(t, after.QuantityHeld)
}

func TestReconcileFinishesFreeOrder(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "0", 5, 5)

	storageDown := errors.New("storage unavailable")
	env.store.mu.Lock()
	env.store.insertTicketErr = storageDown
	env.store.insertTicketFails = 1
	env.store.mu.Unlock()

	_, err := env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID: primitive.NewObjectID(),
		EventID: env.event.ID,
		Lines:   []LineItem{{TicketTypeID: tt.ID, Quantity: 2}},
	})
	assert.ErrorIs(t, err, storageDown)

	require.Len(t, env.store.orders, 1)
	var orderID primitive.ObjectID
	for id := range env.store.orders {
		orderID = id
	}
	stored, err := env.store.GetOrder(env.ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, consts.OrderPaid, stored.Status)
	assert.Nil(t, stored.FulfilledAt)

	n, err := env.checkout.ReconcilePaidOrders(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "orders inside the grace period are left alone")

	env.clock.Advance(reconcileGrace + time.Second)
	n, err = env.checkout.ReconcilePaidOrders(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tickets, err := env.store.ListTicketsByOrder(env.ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
	assert.Equal(t, 2, env.ticketType(t, tt.ID).QuantitySold)
	stored, err = env.store.GetOrder(env.ctx, orderID)
	require.NoError(t, err)
	assert.NotNil(t, stored.FulfilledAt)

	n, err = env.checkout.ReconcilePaidOrders(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStartPayment(t *testing.T) {
	capture := &mockCapture{}
	env := newTestEnv(t, capture)
	tt := env.addTicketType(t, "100", 5, 5)
	buyer := newAccount("a@example.com")
	o := env.order(t, buyer, LineItem{TicketTypeID: tt.ID, Quantity: 1})

	_, err := env.checkout.StartPayment(env.ctx, o.ID, buyer.ID, "cash", "127.0.0.1")
	assert.ErrorIs(t, err, consts.ErrPaymentProviderUnknown)

	_, err = env.checkout.StartPayment(env.ctx, o.ID, primitive.NewObjectID(), "mockpay", "127.0.0.1")
	assert.ErrorIs(t, err, consts.ErrNotOrderOwner)

	capture.On("StartCapture", o.ID, "127.0.0.1").Return("", errors.New("provider unreachable")).Once()
	_, err = env.checkout.StartPayment(env.ctx, o.ID, buyer.ID, "mockpay", "127.0.0.1")
	assert.Error(t, err)
	stored, err := env.store.GetOrder(env.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, consts.OrderPending, stored.Status)

	capture.On("StartCapture", o.ID, "127.0.0.1").Return("https://pay.example/redirect", nil).Once()
	url, err := env.checkout.StartPayment(env.ctx, o.ID, buyer.ID, "mockpay", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/redirect", url)

	stored, err = env.store.GetOrder(env.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "mockpay", stored.PaymentProvider)
	capture.AssertExpectations(t)

	_, err = env.checkout.ConfirmPayment(env.ctx, o.ID, "txn")
	require.NoError(t, err)
	_, err = env.checkout.StartPayment(env.ctx, o.ID, buyer.ID, "mockpay", "127.0.0.1")
	assert.ErrorIs(t, err, consts.ErrOrderAlreadyPaid)
}

func TestNotifierFailureDoesNotUndoPayment(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("queue down")
	tt := env.addTicketType(t, "100", 5, 5)
	o := env.order(t, newAccount("a@example.com"), LineItem{TicketTypeID: tt.ID, Quantity: 1})

	paid, err := env.checkout.ConfirmPayment(env.ctx, o.ID, "txn")
	require.NoError(t, err)
	assert.Equal(t, consts.OrderPaid, paid.Status)
}

func TestPreviewCoupon(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.catalog.CreateCoupon(env.ctx, CouponInput{
		OrganizerID:  env.organizer,
		Code:         "HALF",
		DiscountType: consts.DiscountPercentage,
		Value:        decimal.NewFromInt(50),
		MinPurchase:  decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, discount, err := env.checkout.PreviewCoupon(env.ctx, env.event.ID, "half", decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(discount))

	_, _, err = env.checkout.PreviewCoupon(env.ctx, env.event.ID, "HALF", decimal.NewFromInt(99))
	assert.ErrorIs(t, err, consts.ErrCouponBelowMinimumPurchase)
}

func TestServiceFee(t *testing.T) {
	assert.True(t, decimal.RequireFromString("0.63").Equal(ServiceFee(decimal.RequireFromString("12.50"), decimal.NewFromInt(5))))
	assert.True(t, ServiceFee(decimal.Zero, decimal.NewFromInt(5)).IsZero())
	assert.True(t, ServiceFee(decimal.NewFromInt(100), decimal.Zero).IsZero())
}

func TestConfirmCaptureChecksAmount(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "100", 5, 5)
	o := env.order(t, newAccount("a@example.com"), LineItem{TicketTypeID: tt.ID, Quantity: 1})

	_, err := env.checkout.ConfirmCapture(env.ctx, o.ID, decimal.RequireFromString("100"), "txn")
	assert.ErrorIs(t, err, consts.ErrPaymentAmountMismatch)
	stored, err := env.store.GetOrder(env.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, consts.OrderPending, stored.Status)

	// Late callbacks still confirm an order nobody has swept yet.
	env.clock.Advance(orderTTL + time.Minute)
	paid, err := env.checkout.ConfirmCapture(env.ctx, o.ID, decimal.RequireFromString("105.00"), "txn")
	require.NoError(t, err)
	assert.Equal(t, consts.OrderPaid, paid.Status)

	_, err = env.checkout.ConfirmCapture(env.ctx, primitive.NewObjectID(), decimal.RequireFromString("1"), "txn")
	assert.ErrorIs(t, err, consts.ErrOrderNotFound)
}

func TestCentPricedOrderCanBeCaptured(t *testing.T) {
	env := newTestEnv(t)
	tt := env.addTicketType(t, "10.01", 5, 5)
	_, err := env.catalog.CreateCoupon(env.ctx, CouponInput{
		OrganizerID:  env.organizer,
		Code:         "THIRD",
		DiscountType: consts.DiscountPercentage,
		Value:        decimal.RequireFromString("33.333"),
	})
	require.NoError(t, err)

	o, err := env.checkout.CreateOrder(env.ctx, CreateOrderInput{
		BuyerID:    primitive.NewObjectID(),
		EventID:    env.event.ID,
		Lines:      []LineItem{{TicketTypeID: tt.ID, Quantity: 3}},
		CouponCode: "THIRD",
	})
	require.NoError(t, err)
	require.True(t, o.Total.Equal(o.Total.Round(2)), o.Total.String())

	// Providers settle in minor units.
	captured := decimal.New(o.Total.Shift(2).IntPart(), -2)
	paid, err := env.checkout.ConfirmCapture(env.ctx, o.ID, captured, "txn")
	require.NoError(t, err)
	assert.Equal(t, consts.OrderPaid, paid.Status)
}
