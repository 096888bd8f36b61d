package collections

import (
	"TicketMarket/consts"
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Coupon struct {
	ID           primitive.ObjectID  `bson:"_id" json:"id"`
	OrganizerID  primitive.ObjectID  `bson:"organizer_id" json:"organizer_id"`
	Code         string              `bson:"code" json:"code"`
	DiscountType consts.DiscountType `bson:"discount_type" json:"discount_type"`
	Value        decimal.Decimal     `bson:"value" json:"value"`
	EventID      *primitive.ObjectID `bson:"event_id,omitempty" json:"event_id,omitempty"`

	// MaxUses nil means unlimited.
	MaxUses     *int            `bson:"max_uses,omitempty" json:"max_uses,omitempty"`
	UsedCount   int             `bson:"used_count" json:"used_count"`
	MinPurchase decimal.Decimal `bson:"min_purchase" json:"min_purchase"`

	ValidFrom  time.Time  `bson:"valid_from" json:"valid_from"`
	ValidUntil *time.Time `bson:"valid_until,omitempty" json:"valid_until,omitempty"`
	Active     bool       `bson:"active" json:"active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type Coupons []Coupon

func (u *Coupon) getCollectionName() string {
	return "coupons"
}

func (u *Coupon) Create(ctx context.Context) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, u.getCollectionName(), u)
}

func (u *Coupon) First(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) error {
	return findOne(ctx, u.getCollectionName(), filter, u, opts...)
}

func (u *Coupon) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (Coupons, error) {
	return findAll[Coupon](ctx, u.getCollectionName(), filter, opts...)
}

func (u *Coupon) Update(ctx context.Context, filter bson.M, updateDoc bson.M, opts ...*options.UpdateOptions) error {
	return updateOne(ctx, u.getCollectionName(), filter, updateDoc, opts...)
}
