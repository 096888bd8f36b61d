package collections

import (
	"TicketMarket/consts"
	"context"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventSchedule struct {
	StartAt time.Time `bson:"start_at" json:"start_at"`
	EndAt   time.Time `bson:"end_at" json:"end_at"`
}

type EventVenue struct {
	Name    string `bson:"name" json:"name"`
	Address string `bson:"address" json:"address"`
	MapURL  string `bson:"map_url,omitempty" json:"map_url,omitempty"`
}

type Event struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	OrganizerID primitive.ObjectID `bson:"organizer_id" json:"organizer_id"`
	Title       string             `bson:"title" json:"title"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Schedule    EventSchedule      `bson:"schedule" json:"schedule"`
	Venue       EventVenue         `bson:"venue" json:"venue"`
	Status      consts.EventStatus `bson:"status" json:"status"`
	// StaffIDs are the accounts allowed to check tickets in besides the
	// organizer.
	StaffIDs []primitive.ObjectID `bson:"staff_ids,omitempty" json:"staff_ids,omitempty"`

	TicketTypes TicketTypes `bson:"-" json:"ticket_types,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	DeletedAt time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

type Events []Event

// VisibleTo hides drafts from everyone but their organizer.
func (u *Event) VisibleTo(accountID primitive.ObjectID) bool {
	return u.Status != consts.EventDraft || u.OrganizerID == accountID
}

// CanCheckIn reports whether the account may admit tickets at the door.
func (u *Event) CanCheckIn(accountID primitive.ObjectID) bool {
	return u.OrganizerID == accountID || slices.Contains(u.StaffIDs, accountID)
}

func (u *Event) getCollectionName() string {
	return "events"
}

func (u *Event) Create(ctx context.Context) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, u.getCollectionName(), u)
}

func (u *Event) First(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) error {
	return findOne(ctx, u.getCollectionName(), filter, u, opts...)
}

func (u *Event) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (Events, error) {
	if filter == nil {
		filter = bson.M{}
	}
	filter["deleted_at"] = bson.M{"$exists": false}
	return findAll[Event](ctx, u.getCollectionName(), filter, opts...)
}

func (u *Event) Update(ctx context.Context, filter bson.M, updateDoc bson.M, opts ...*options.UpdateOptions) error {
	return updateOne(ctx, u.getCollectionName(), filter, updateDoc, opts...)
}
