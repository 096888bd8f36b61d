package service

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"TicketMarket/monitoring"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const reconcileGrace = time.Minute

// PaymentCapture is an external payment provider. A successful capture is
// reported back asynchronously through Checkout.ConfirmPayment.
type PaymentCapture interface {
	Name() string
	StartCapture(ctx context.Context, order *collections.Order, clientIP string) (redirectURL string, err error)
}

// Notifier delivers fire-and-forget notifications.
type Notifier interface {
	Notify(ctx context.Context, kind string, payload map[string]string) error
}

type CheckoutStore interface {
	OrderStore
	CouponStore
	GetEvent(ctx context.Context, id primitive.ObjectID) (*collections.Event, error)
	GetTicketType(ctx context.Context, id primitive.ObjectID) (*collections.TicketType, error)
}

type CheckoutConfig struct {
	FeePercent decimal.Decimal
	OrderTTL   time.Duration
	Currency   string
}

// Checkout drives an order from cart to paid or cancelled.
type Checkout struct {
	store     CheckoutStore
	inventory *Inventory
	issuer    *Issuer
	notifier  Notifier
	providers map[string]PaymentCapture
	cfg       CheckoutConfig
	now       func() time.Time
}

func NewCheckout(store CheckoutStore, inventory *Inventory, issuer *Issuer, notifier Notifier, cfg CheckoutConfig, providers ...PaymentCapture) *Checkout {
	c := &Checkout{
		store:     store,
		inventory: inventory,
		issuer:    issuer,
		notifier:  notifier,
		providers: map[string]PaymentCapture{},
		cfg:       cfg,
		now:       time.Now,
	}
	for _, p := range providers {
		c.providers[p.Name()] = p
	}
	return c
}

type LineItem struct {
	TicketTypeID primitive.ObjectID
	Quantity     int
}

type CreateOrderInput struct {
	BuyerID    primitive.ObjectID
	BuyerEmail string
	BuyerName  string
	EventID    primitive.ObjectID
	Lines      []LineItem
	CouponCode string
}

// LineError is the failure of one cart line.
type LineError struct {
	TicketTypeID primitive.ObjectID
	Err          error
}

func (e LineError) Error() string {
	return fmt.Sprintf("ticket type %s: %v", e.TicketTypeID.Hex(), e.Err)
}

func (e LineError) Unwrap() error {
	return e.Err
}

// CartError collects every rejected line so the buyer sees all of them at
// once. errors.Is matches the sentinel of any line.
type CartError struct {
	Lines []LineError
}

func (e *CartError) Error() string {
	msgs := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		msgs = append(msgs, l.Error())
	}
	return "cart rejected: " + strings.Join(msgs, "; ")
}

func (e *CartError) Unwrap() []error {
	out := make([]error, 0, len(e.Lines))
	for _, l := range e.Lines {
		out = append(out, l)
	}
	return out
}

// mergeLines folds repeated ticket types into one line, keeping first-seen
// order.
func mergeLines(lines []LineItem) []LineItem {
	index := map[primitive.ObjectID]int{}
	out := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.TicketTypeID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.TicketTypeID] = len(out)
		out = append(out, l)
	}
	return out
}

// CreateOrder validates the cart, reserves every line and persists a
// pending order. Either every line is reserved or none is.
func (s *Checkout) CreateOrder(ctx context.Context, in CreateOrderInput) (*collections.Order, error) {
	if len(in.Lines) == 0 {
		return nil, consts.ErrEmptyCart
	}
	lines := mergeLines(in.Lines)

	event, err := s.store.GetEvent(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if event.Status != consts.EventPublished {
		return nil, consts.ErrEventNotOnSale
	}

	// Prices come from storage, never from the client.
	types := make([]*collections.TicketType, len(lines))
	cartErr := &CartError{}
	for i, l := range lines {
		tt, err := s.store.GetTicketType(ctx, l.TicketTypeID)
		if errors.Is(err, consts.ErrTicketTypeNotFound) {
			cartErr.Lines = append(cartErr.Lines, LineError{TicketTypeID: l.TicketTypeID, Err: err})
			continue
		}
		if err != nil {
			return nil, err
		}
		if tt.EventID != event.ID {
			cartErr.Lines = append(cartErr.Lines, LineError{TicketTypeID: l.TicketTypeID, Err: consts.ErrTicketTypeNotInEvent})
			continue
		}
		if err := s.inventory.CheckReservable(tt, l.Quantity, false); err != nil {
			cartErr.Lines = append(cartErr.Lines, LineError{TicketTypeID: l.TicketTypeID, Err: err})
			continue
		}
		types[i] = tt
	}
	if len(cartErr.Lines) > 0 {
		return nil, cartErr
	}

	now := s.now()
	order := &collections.Order{
		ID:          primitive.NewObjectID(),
		BuyerID:     in.BuyerID,
		BuyerEmail:  strings.ToLower(strings.TrimSpace(in.BuyerEmail)),
		BuyerName:   in.BuyerName,
		EventID:     event.ID,
		OrganizerID: event.OrganizerID,
		FeePercent:  s.cfg.FeePercent,
		Currency:    s.cfg.Currency,
		Status:      consts.OrderPending,
		ExpiresAt:   now.Add(s.cfg.OrderTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	subtotal := decimal.Zero
	for i, l := range lines {
		line := collections.OrderLine{
			ID:             primitive.NewObjectID(),
			TicketTypeID:   types[i].ID,
			TicketTypeName: types[i].Name,
			Quantity:       l.Quantity,
			UnitPrice:      types[i].Price,
		}
		subtotal = subtotal.Add(line.LineTotal())
		order.Lines = append(order.Lines, line)
	}
	order.Subtotal = subtotal

	discount := decimal.Zero
	if code := strings.ToUpper(strings.TrimSpace(in.CouponCode)); code != "" {
		coupon, err := s.store.GetCouponByCode(ctx, event.OrganizerID, code)
		if err != nil {
			return nil, err
		}
		discount, err = EvaluateCoupon(coupon, subtotal, event.ID, now)
		if err != nil {
			return nil, err
		}
		couponID := coupon.ID
		order.CouponID = &couponID
		order.CouponCode = coupon.Code
	}
	order.Discount = discount
	order.Fee = ServiceFee(subtotal.Sub(discount), s.cfg.FeePercent)
	order.Total = subtotal.Sub(discount).Add(order.Fee)

	if err := s.reserveAll(ctx, order); err != nil {
		return nil, err
	}

	free := order.Total.IsZero()
	if free {
		order.PaymentProvider = consts.PaymentProviderFree
	}
	if err := s.store.InsertOrder(ctx, order); err != nil {
		s.releaseLines(ctx, order.Lines)
		return nil, fmt.Errorf("persisting order: %w", err)
	}
	monitoring.TrackOrderTransition(string(consts.OrderPending))

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID.Hex(),
		"event_id": order.EventID.Hex(),
		"total":    order.Total.String(),
	}).Info("order created")

	if free {
		return s.ConfirmPayment(ctx, order.ID, consts.PaymentProviderFree)
	}
	return order, nil
}

// reserveAll takes a hold for every line. On the first failure the holds
// already taken are released and the failing line is reported.
func (s *Checkout) reserveAll(ctx context.Context, order *collections.Order) error {
	orderID := order.ID
	for i := range order.Lines {
		line := &order.Lines[i]
		res, err := s.inventory.Reserve(ctx, ReserveRequest{
			TicketTypeID: line.TicketTypeID,
			OrderID:      &orderID,
			Quantity:     line.Quantity,
			ExpiresAt:    order.ExpiresAt,
		})
		if err != nil {
			s.releaseLines(ctx, order.Lines[:i])
			if IsCapacityError(err) {
				return &CartError{Lines: []LineError{{TicketTypeID: line.TicketTypeID, Err: err}}}
			}
			return err
		}
		line.ReservationID = res.ID
	}
	return nil
}

func (s *Checkout) releaseLines(ctx context.Context, lines []collections.OrderLine) {
	for _, l := range lines {
		if l.ReservationID.IsZero() {
			continue
		}
		if err := s.inventory.Release(ctx, l.ReservationID); err != nil {
			logrus.WithError(err).WithField("reservation_id", l.ReservationID.Hex()).Error("releasing reservation")
		}
	}
}

// IsCapacityError reports whether err is one of the inventory refusals.
func IsCapacityError(err error) bool {
	return errors.Is(err, consts.ErrOutOfStock) ||
		errors.Is(err, consts.ErrOrderLimitExceeded) ||
		errors.Is(err, consts.ErrSalesWindowClosed) ||
		errors.Is(err, consts.ErrTicketTypeInactive)
}

// ServiceFee is percent of base, rounded to cents.
func ServiceFee(base, percent decimal.Decimal) decimal.Decimal {
	if !percent.IsPositive() || !base.IsPositive() {
		return decimal.Zero
	}
	return base.Mul(percent).Div(hundred).Round(2)
}

// ConfirmPayment records a successful capture. It is safe to call any
// number of times: a paid order only re-runs the idempotent finalisation,
// which also recovers a confirmation that crashed halfway.
func (s *Checkout) ConfirmPayment(ctx context.Context, orderID primitive.ObjectID, ref string) (*collections.Order, error) {
	order, transitioned, err := s.store.MarkOrderPaid(ctx, orderID, ref, s.now())
	if err != nil {
		return nil, err
	}

	log := logrus.WithField("order_id", order.ID.Hex())
	if err := s.finalize(ctx, order); err != nil {
		log.WithError(err).Error("finalising paid order")
		return nil, err
	}

	if transitioned {
		monitoring.TrackOrderTransition(string(consts.OrderPaid))
		log.WithField("payment_ref", ref).Info("order paid")
		s.notify(ctx, consts.NotifyOrderPaid, map[string]string{"order_id": order.ID.Hex()})
	}
	return order, nil
}

// ConfirmCapture is ConfirmPayment for a provider callback: the captured
// amount must match the order total. A pending order past its deadline is
// still confirmed since the buyer has been charged.
func (s *Checkout) ConfirmCapture(ctx context.Context, orderID primitive.ObjectID, amount decimal.Decimal, ref string) (*collections.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Total.Equal(amount) {
		logrus.WithFields(logrus.Fields{
			"order_id": order.ID.Hex(),
			"expected": order.Total.String(),
			"captured": amount.String(),
		}).Error("captured amount does not match order total")
		return nil, consts.ErrPaymentAmountMismatch
	}
	return s.ConfirmPayment(ctx, orderID, ref)
}

func (s *Checkout) finalize(ctx context.Context, order *collections.Order) error {
	for _, line := range order.Lines {
		if err := s.inventory.Commit(ctx, line.ReservationID); err != nil {
			return fmt.Errorf("committing reservation %s: %w", line.ReservationID.Hex(), err)
		}
		for seq := 0; seq < line.Quantity; seq++ {
			if _, err := s.issuer.Issue(ctx, order, line, seq); err != nil {
				return fmt.Errorf("issuing ticket %s: %w", IssueKey(line.ID, seq), err)
			}
		}
	}

	if order.CouponID != nil && !order.CouponRedeemed {
		err := s.store.RedeemCoupon(ctx, order.ID, *order.CouponID)
		switch {
		case errors.Is(err, consts.ErrCouponUsageCapReached):
			// The discount was granted at order time and stands.
			logrus.WithFields(logrus.Fields{
				"order_id":  order.ID.Hex(),
				"coupon_id": order.CouponID.Hex(),
			}).Warn("coupon cap reached before redemption")
		case err != nil:
			return fmt.Errorf("redeeming coupon: %w", err)
		}
		order.CouponRedeemed = true
	}

	if order.FulfilledAt == nil {
		now := s.now()
		if err := s.store.MarkOrderFulfilled(ctx, order.ID, now); err != nil {
			return fmt.Errorf("marking order fulfilled: %w", err)
		}
		order.FulfilledAt = &now
	}
	return nil
}

// ExpireOrCancel cancels a pending order and returns its holds. Cancelling
// a cancelled order only re-releases the holds.
func (s *Checkout) ExpireOrCancel(ctx context.Context, orderID primitive.ObjectID) (*collections.Order, error) {
	order, transitioned, err := s.store.CancelOrder(ctx, orderID, s.now())
	if err != nil {
		return nil, err
	}
	s.releaseLines(ctx, order.Lines)
	if transitioned {
		monitoring.TrackOrderTransition(string(consts.OrderCancelled))
		logrus.WithField("order_id", order.ID.Hex()).Info("order cancelled")
	}
	return order, nil
}

// CancelOrder is ExpireOrCancel on behalf of the buyer.
func (s *Checkout) CancelOrder(ctx context.Context, orderID, buyerID primitive.ObjectID) (*collections.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, consts.ErrNotOrderOwner
	}
	return s.ExpireOrCancel(ctx, orderID)
}

// GetOrder expires a pending order past its deadline before returning it.
func (s *Checkout) GetOrder(ctx context.Context, orderID primitive.ObjectID) (*collections.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == consts.OrderPending && !s.now().Before(order.ExpiresAt) {
		expired, err := s.ExpireOrCancel(ctx, orderID)
		if err == nil {
			return expired, nil
		}
		if errors.Is(err, consts.ErrOrderAlreadyPaid) {
			return s.store.GetOrder(ctx, orderID)
		}
		return nil, err
	}
	return order, nil
}

func (s *Checkout) ListOrders(ctx context.Context, buyerID primitive.ObjectID) ([]collections.Order, error) {
	return s.store.ListOrdersByBuyer(ctx, buyerID)
}

// StartPayment hands a pending order to the named provider and returns the
// redirect the buyer has to follow.
func (s *Checkout) StartPayment(ctx context.Context, orderID, buyerID primitive.ObjectID, provider, clientIP string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", consts.ErrPaymentProviderUnknown
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.BuyerID != buyerID {
		return "", consts.ErrNotOrderOwner
	}
	switch order.Status {
	case consts.OrderPending:
	case consts.OrderPaid:
		return "", consts.ErrOrderAlreadyPaid
	default:
		return "", consts.ErrOrderNotPending
	}

	if err := s.store.SetOrderProvider(ctx, order.ID, p.Name(), s.now()); err != nil {
		return "", err
	}
	order.PaymentProvider = p.Name()

	url, err := p.StartCapture(ctx, order, clientIP)
	if err != nil {
		// The order stays pending; expiry cleans it up if the buyer gives up.
		return "", fmt.Errorf("starting %s capture: %w", p.Name(), err)
	}
	return url, nil
}

// PreviewCoupon evaluates a code against a subtotal for an event without
// touching any state.
func (s *Checkout) PreviewCoupon(ctx context.Context, eventID primitive.ObjectID, code string, subtotal decimal.Decimal) (*collections.Coupon, decimal.Decimal, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	coupon, err := s.store.GetCouponByCode(ctx, event.OrganizerID, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, decimal.Zero, err
	}
	discount, err := EvaluateCoupon(coupon, subtotal, event.ID, s.now())
	if err != nil {
		return coupon, decimal.Zero, err
	}
	return coupon, discount, nil
}

// ExpirePendingOrders cancels every pending order past its deadline.
func (s *Checkout) ExpirePendingOrders(ctx context.Context) (int, error) {
	orders, err := s.store.PendingOrdersExpiredBy(ctx, s.now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, o := range orders {
		_, err := s.ExpireOrCancel(ctx, o.ID)
		if err != nil {
			// A payment may have landed between the query and the cancel.
			logrus.WithError(err).WithField("order_id", o.ID.Hex()).Warn("could not expire order")
			continue
		}
		n++
	}
	monitoring.TrackSwept("order", n)
	return n, nil
}

// ReconcilePaidOrders re-runs finalisation for paid orders that never
// reached fulfilled_at, such as a free order whose tickets failed to mint.
// Orders paid within the last reconcileGrace are left to the confirmation
// still working on them.
func (s *Checkout) ReconcilePaidOrders(ctx context.Context) (int, error) {
	orders, err := s.store.UnfulfilledPaidOrders(ctx, s.now().Add(-reconcileGrace), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	n := 0
	for i := range orders {
		o := &orders[i]
		if err := s.finalize(ctx, o); err != nil {
			logrus.WithError(err).WithField("order_id", o.ID.Hex()).Error("reconciling paid order")
			continue
		}
		logrus.WithField("order_id", o.ID.Hex()).Info("paid order reconciled")
		n++
	}
	monitoring.TrackSwept("paid_order", n)
	return n, nil
}

// ExpireReservations releases holds nobody will pay for: complimentary
// holds that never got a ticket and holds whose order is gone or
// cancelled. A complimentary hold whose ticket was minted is committed
// instead. Holds of pending orders are left to ExpirePendingOrders.
func (s *Checkout) ExpireReservations(ctx context.Context) (int, error) {
	return s.inventory.ExpireReservations(ctx, func(ctx context.Context, r *collections.Reservation) (bool, error) {
		if r.OrderID == nil {
			return s.issuer.SettleComplimentary(ctx, r.ID)
		}
		order, err := s.store.GetOrder(ctx, *r.OrderID)
		if errors.Is(err, consts.ErrOrderNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return order.Status != consts.OrderCancelled, nil
	})
}

func (s *Checkout) notify(ctx context.Context, kind string, payload map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, kind, payload); err != nil {
		logrus.WithError(err).WithField("kind", kind).Error("notification dropped")
	}
}
