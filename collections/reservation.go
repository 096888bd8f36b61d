package collections

import (
	"TicketMarket/consts"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Reservation is a soft hold on ticket type capacity. OrderID is nil for
// complimentary reservations.
type Reservation struct {
	ID           primitive.ObjectID       `bson:"_id" json:"id"`
	TicketTypeID primitive.ObjectID       `bson:"ticket_type_id" json:"ticket_type_id"`
	EventID      primitive.ObjectID       `bson:"event_id" json:"event_id"`
	OrderID      *primitive.ObjectID      `bson:"order_id,omitempty" json:"order_id,omitempty"`
	Quantity     int                      `bson:"quantity" json:"quantity"`
	Status       consts.ReservationStatus `bson:"status" json:"status"`

	ExpiresAt   time.Time  `bson:"expires_at" json:"expires_at"`
	CommittedAt *time.Time `bson:"committed_at,omitempty" json:"committed_at,omitempty"`
	ReleasedAt  *time.Time `bson:"released_at,omitempty" json:"released_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
}

type Reservations []Reservation

func (u *Reservation) getCollectionName() string {
	return "reservations"
}

func (u *Reservation) Create(ctx context.Context) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, u.getCollectionName(), u)
}

func (u *Reservation) First(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) error {
	return findOne(ctx, u.getCollectionName(), filter, u, opts...)
}

func (u *Reservation) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (Reservations, error) {
	return findAll[Reservation](ctx, u.getCollectionName(), filter, opts...)
}

// Transition moves the reservation from one status to another. It returns
// mongo.ErrNoDocuments when the reservation is not in the from status.
func (u *Reservation) Transition(ctx context.Context, from, to consts.ReservationStatus, set bson.M) error {
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
