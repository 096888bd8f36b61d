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

type OrderLine struct {
	ID             primitive.ObjectID `bson:"id" json:"id"`
	TicketTypeID   primitive.ObjectID `bson:"ticket_type_id" json:"ticket_type_id"`
	TicketTypeName string             `bson:"ticket_type_name" json:"ticket_type_name"`
	Quantity       int                `bson:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal    `bson:"unit_price" json:"unit_price"`
	ReservationID  primitive.ObjectID `bson:"reservation_id" json:"reservation_id"`
}

// LineTotal is unit price times quantity.
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	BuyerID     primitive.ObjectID `bson:"buyer_id" json:"buyer_id"`
	BuyerEmail  string             `bson:"buyer_email" json:"buyer_email"`
	BuyerName   string             `bson:"buyer_name,omitempty" json:"buyer_name,omitempty"`
	EventID     primitive.ObjectID `bson:"event_id" json:"event_id"`
	OrganizerID primitive.ObjectID `bson:"organizer_id" json:"organizer_id"`
	Lines       []OrderLine        `bson:"lines" json:"lines"`

	Subtotal   decimal.Decimal     `bson:"subtotal" json:"subtotal"`
	CouponCode string              `bson:"coupon_code,omitempty" json:"coupon_code,omitempty"`
	CouponID   *primitive.ObjectID `bson:"coupon_id,omitempty" json:"coupon_id,omitempty"`
	Discount   decimal.Decimal     `bson:"discount" json:"discount"`
	FeePercent decimal.Decimal     `bson:"fee_percent" json:"fee_percent"`
	Fee        decimal.Decimal     `bson:"fee" json:"fee"`
	Total      decimal.Decimal     `bson:"total" json:"total"`
	Currency   string              `bson:"currency" json:"currency"`

	Status          consts.OrderStatus `bson:"status" json:"status"`
	PaymentProvider string             `bson:"payment_provider,omitempty" json:"payment_provider,omitempty"`
	PaymentRef      string             `bson:"payment_ref,omitempty" json:"payment_ref,omitempty"`
	CouponRedeemed  bool               `bson:"coupon_redeemed" json:"-"`

	ExpiresAt   time.Time  `bson:"expires_at" json:"expires_at"`
	PaidAt      *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	FulfilledAt *time.Time `bson:"fulfilled_at,omitempty" json:"fulfilled_at,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

type Orders []Order

// Line returns the line with the given id.
func (u *Order) Line(id primitive.ObjectID) (OrderLine, bool) {
	for _, l := range u.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return OrderLine{}, false
}

// TicketCount is the number of tickets a paid order entitles.
func (u *Order) TicketCount() int {
	n := 0
	for _, l := range u.Lines {
		n += l.Quantity
	}
	return n
}

func (u *Order) getCollectionName() string {
	return "orders"
}

func (u *Order) Create(ctx context.Context) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, u.getCollectionName(), u)
}

func (u *Order) First(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) error {
	return findOne(ctx, u.getCollectionName(), filter, u, opts...)
}

func (u *Order) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (Orders, error) {
	return findAll[Order](ctx, u.getCollectionName(), filter, opts...)
}

func (u *Order) Update(ctx context.Context, filter bson.M, updateDoc bson.M, opts ...*options.UpdateOptions) error {
	return updateOne(ctx, u.getCollectionName(), filter, updateDoc, opts...)
}

// Transition is the order state machine's compare-and-set. The decoded
// document reflects the write.
func (u *Order) Transition(ctx context.Context, from, to consts.OrderStatus, set bson.M) error {
	if set == nil {
		set = bson.M{}
	}
	set["status"] = to
	return findOneAndUpdate(ctx, u.getCollectionName(),
		bson.M{"_id": u.ID, "status": from},
		bson.M{"$set": set},
		u,
	)
}
