package collections

import (
	"TicketMarket/consts"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TicketTransfer struct {
	ID            primitive.ObjectID    `bson:"_id" json:"id"`
	TicketID      primitive.ObjectID    `bson:"ticket_id" json:"ticket_id"`
	EventID       primitive.ObjectID    `bson:"event_id" json:"event_id"`
	FromAccountID primitive.ObjectID    `bson:"from_account_id" json:"from_account_id"`
	FromEmail     string                `bson:"from_email" json:"from_email"`
	ToEmail       string                `bson:"to_email" json:"to_email"`
	ToAccountID   *primitive.ObjectID   `bson:"to_account_id,omitempty" json:"to_account_id,omitempty"`
	Status        consts.TransferStatus `bson:"status" json:"status"`

	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

type TicketTransfers []TicketTransfer

func (u *TicketTransfer) getCollectionName() string {
	return "ticket_transfers"
}

func (u *TicketTransfer) Create(ctx context.Context) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, u.getCollectionName(), u)
}

func (u *TicketTransfer) First(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) error {
	return findOne(ctx, u.getCollectionName(), filter, u, opts...)
}

func (u *TicketTransfer) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (TicketTransfers, error) {
	return findAll[TicketTransfer](ctx, u.getCollectionName(), filter, opts...)
}

// Resolve moves a pending transfer to a terminal status. Only one caller
// can win; the rest get mongo.ErrNoDocuments.
func (u *TicketTransfer) Resolve(ctx context.Context, to consts.TransferStatus, set bson.M) error {
	if set == nil {
		set = bson.M{}
	}
	set["status"] = to
	return findOneAndUpdate(ctx, u.getCollectionName(),
		bson.M{"_id": u.ID, "status": consts.TransferPending},
		bson.M{"$set": set},
		u,
	)
}
