package collections

import (
	"TicketMarket/consts"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Ticket struct {
	ID           primitive.ObjectID  `bson:"_id" json:"id"`
	OrderID      *primitive.ObjectID `bson:"order_id,omitempty" json:"order_id,omitempty"`
	OrderLineID  *primitive.ObjectID `bson:"order_line_id,omitempty" json:"order_line_id,omitempty"`
	IssueKey     string              `bson:"issue_key" json:"-"`
	TicketTypeID primitive.ObjectID  `bson:"ticket_type_id" json:"ticket_type_id"`
	EventID      primitive.ObjectID  `bson:"event_id" json:"event_id"`
	Code         string              `bson:"code" json:"code"`

	HolderID      primitive.ObjectID `bson:"holder_id" json:"holder_id"`
	AttendeeName  string             `bson:"attendee_name" json:"attendee_name"`
	AttendeeEmail string             `bson:"attendee_email" json:"attendee_email"`

	IsUsed         bool                        `bson:"is_used" json:"is_used"`
	UsedAt         *time.Time                  `bson:"used_at,omitempty" json:"used_at,omitempty"`
	TransferStatus consts.TicketTransferStatus `bson:"transfer_status" json:"transfer_status"`
	Complimentary  bool                        `bson:"complimentary" json:"complimentary"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type Tickets []Ticket

func (u *Ticket) getCollectionName() string {
	return "tickets"
}

func (u *Ticket) Create(ctx context.Context) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, u.getCollectionName(), u)
}

func (u *Ticket) First(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) error {
	return findOne(ctx, u.getCollectionName(), filter, u, opts...)
}

func (u *Ticket) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (Tickets, error) {
	return findAll[Ticket](ctx, u.getCollectionName(), filter, opts...)
}

func (u *Ticket) Count(ctx context.Context, filter bson.M) (int64, error) {
	return countDocuments(ctx, u.getCollectionName(), filter)
}

func (u *Ticket) Update(ctx context.Context, filter bson.M, updateDoc bson.M, opts ...*options.UpdateOptions) error {
	return updateOne(ctx, u.getCollectionName(), filter, updateDoc, opts...)
}

// UpdateAndGet applies a conditional update and decodes the updated ticket.
func (u *Ticket) UpdateAndGet(ctx context.Context, filter bson.M, updateDoc bson.M) error {
	return findOneAndUpdate(ctx, u.getCollectionName(), filter, updateDoc, u)
}
