package service

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var hundred = decimal.NewFromInt(100)

// wholeCents reports whether d fits the two-decimal scale payment
// providers settle in.
func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// EvaluateCoupon computes the discount a coupon grants on subtotal. It never
// exceeds subtotal. Checks run in a fixed order so the first failing rule is
// the one reported.
func EvaluateCoupon(c *collections.Coupon, subtotal decimal.Decimal, eventID primitive.ObjectID, now time.Time) (decimal.Decimal, error) {
	switch {
	case !c.Active:
		return decimal.Zero, consts.ErrCouponInactive
	case now.Before(c.ValidFrom):
		return decimal.Zero, consts.ErrCouponNotYetValid
	case c.ValidUntil != nil && now.After(*c.ValidUntil):
		return decimal.Zero, consts.ErrCouponExpired
	case c.MaxUses != nil && c.UsedCount >= *c.MaxUses:
		return decimal.Zero, consts.ErrCouponUsageCapReached
	case c.EventID != nil && *c.EventID != eventID:
		return decimal.Zero, consts.ErrCouponWrongEventScope
	case subtotal.LessThan(c.MinPurchase):
		return decimal.Zero, consts.ErrCouponBelowMinimumPurchase
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case consts.DiscountPercentage:
		discount = subtotal.Mul(c.Value).Div(hundred).Round(2)
	case consts.DiscountFixed:
		discount = c.Value
	default:
		return decimal.Zero, consts.ErrInvalidCoupon
	}

	if discount.IsNegative() {
		return decimal.Zero, consts.ErrInvalidCoupon
	}
	return decimal.Min(discount, subtotal), nil
}
