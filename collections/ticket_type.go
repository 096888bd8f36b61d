package collections

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TicketType struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	EventID     primitive.ObjectID `bson:"event_id" json:"event_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Price       decimal.Decimal    `bson:"price" json:"price"`
	Currency    string             `bson:"currency" json:"currency"`

	// QuantitySold is written only by the inventory ledger; QuantityHeld
	// counts soft holds that are still waiting for payment.
	QuantityAvailable int `bson:"quantity_available" json:"quantity_available"`
	QuantitySold      int `bson:"quantity_sold" json:"quantity_sold"`
	QuantityHeld      int `bson:"quantity_held" json:"quantity_held"`
	MaxPerOrder       int `bson:"max_per_order" json:"max_per_order"`

	Active     bool       `bson:"active" json:"active"`
	SalesStart *time.Time `bson:"sales_start,omitempty" json:"sales_start,omitempty"`
	SalesEnd   *time.Time `bson:"sales_end,omitempty" json:"sales_end,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type TicketTypes []TicketType

// Remaining is capacity not yet sold nor held.
func (u *TicketType) Remaining() int {
	return u.QuantityAvailable - u.QuantitySold - u.QuantityHeld
}

// OnSale reports whether now falls inside the optional sales window.
func (u *TicketType) OnSale(now time.Time) bool {
	if u.SalesStart != nil && now.Before(*u.SalesStart) {
		return false
	}
	if u.SalesEnd != nil && !now.Before(*u.SalesEnd) {
		return false
	}
	return true
}

func (u *TicketType) getCollectionName() string {
	return "ticket_types"
}

func (u *TicketType) Create(ctx context.Context) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, u.getCollectionName(), u)
}

func (u *TicketType) First(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) error {
	return findOne(ctx, u.getCollectionName(), filter, u, opts...)
}

func (u *TicketType) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (TicketTypes, error) {
	return findAll[TicketType](ctx, u.getCollectionName(), filter, opts...)
}

func (u *TicketType) Update(ctx context.Context, filter bson.M, updateDoc bson.M, opts ...*options.UpdateOptions) error {
	return updateOne(ctx, u.getCollectionName(), filter, updateDoc, opts...)
}
