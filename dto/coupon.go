package dto

import (
	"TicketMarket/consts"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CreateCouponReq struct {
	Code         string              `json:"code" binding:"required"`
	DiscountType consts.DiscountType `json:"discount_type" binding:"required,oneof=percentage fixed"`
	Value        decimal.Decimal     `json:"value"`
	EventID      *primitive.ObjectID `json:"event_id,omitempty"`
	MaxUses      *int                `json:"max_uses,omitempty" binding:"omitempty,gt=0"`
	MinPurchase  decimal.Decimal     `json:"min_purchase"`
	ValidFrom    *time.Time          `json:"valid_from,omitempty"`
	ValidUntil   *time.Time          `json:"valid_until,omitempty"`
}

type PreviewCouponReq struct {
	EventID  primitive.ObjectID `json:"event_id" binding:"required"`
	Code     string             `json:"code" binding:"required"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

type PreviewCouponResp struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Subtotal decimal.Decimal `json:"subtotal"`
}
