package service

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"TicketMarket/database"
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on the collections package. Every rule that
// must hold under concurrent writers is a conditional update or a
// transaction; nothing here reads a counter and writes it back.
type MongoStore struct{}

func NewMongoStore() *MongoStore {
	return &MongoStore{}
}

var _ Store = (*MongoStore)(nil)

func (s *MongoStore) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := database.GetDB().Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sentinel
	}
	return err
}

// Inventory

func (s *MongoStore) GetTicketType(ctx context.Context, id primitive.ObjectID) (*collections.TicketType, error) {
	tt := &collections.TicketType{}
	if err := tt.First(ctx, bson.M{"_id": id}); err != nil {
		return nil, notFound(err, consts.ErrTicketTypeNotFound)
	}
	return tt, nil
}

func (s *MongoStore) HoldCapacity(ctx context.Context, r *collections.Reservation) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		tt := &collections.TicketType{}
		filter := bson.M{
			"_id": r.TicketTypeID,
			"$expr": bson.M{"$lte": bson.A{
				bson.M{"$add": bson.A{"$quantity_sold", "$quantity_held", r.Quantity}},
				"$quantity_available",
			}},
		}
		err := tt.Update(sc, filter, bson.M{"$inc": bson.M{"quantity_held": r.Quantity}})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return consts.ErrOutOfStock
		}
		if err != nil {
			return err
		}
		return r.Create(sc)
	})
}

func (s *MongoStore) CommitReservation(ctx context.Context, id primitive.ObjectID, now time.Time) (*collections.Reservation, error) {
	var out *collections.Reservation
	err := s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		r := &collections.Reservation{ID: id}
		err := r.Transition(sc, consts.ReservationHeld, consts.ReservationCommitted, bson.M{"committed_at": now})
		if errors.Is(err, mongo.ErrNoDocuments) {
			cur := &collections.Reservation{}
			if err := cur.First(sc, bson.M{"_id": id}); err != nil {
				return notFound(err, consts.ErrReservationNotFound)
			}
			if cur.Status != consts.ReservationCommitted {
				return consts.ErrReservationReleased
			}
			out = cur
			return nil
		}
		if err != nil {
			return err
		}

		tt := &collections.TicketType{}
		err = tt.Update(sc, bson.M{"_id": r.TicketTypeID}, bson.M{
			"$inc": bson.M{"quantity_held": -r.Quantity, "quantity_sold": r.Quantity},
			"$set": bson.M{"updated_at": now},
		})
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

func (s *MongoStore) ReleaseReservation(ctx context.Context, id primitive.ObjectID, now time.Time) (*collections.Reservation, error) {
	var out *collections.Reservation
	err := s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		r := &collections.Reservation{ID: id}
		err := r.Transition(sc, consts.ReservationHeld, consts.ReservationReleased, bson.M{"released_at": now})
		if errors.Is(err, mongo.ErrNoDocuments) {
			cur := &collections.Reservation{}
			if err := cur.First(sc, bson.M{"_id": id}); err != nil {
				return notFound(err, consts.ErrReservationNotFound)
			}
			if cur.Status != consts.ReservationReleased {
				return consts.ErrInvalidStatusTransition
			}
			out = cur
			return nil
		}
		if err != nil {
			return err
		}

		tt := &collections.TicketType{}
		err = tt.Update(sc, bson.M{"_id": r.TicketTypeID}, bson.M{
			"$inc": bson.M{"quantity_held": -r.Quantity},
			"$set": bson.M{"updated_at": now},
		})
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

func (s *MongoStore) HeldReservationsExpiredBy(ctx context.Context, now time.Time, limit int) ([]collections.Reservation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}).SetLimit(int64(limit))
	return (&collections.Reservation{}).Find(ctx, bson.M{
		"status":     consts.ReservationHeld,
		"expires_at": bson.M{"$lte": now},
	}, opts)
}

// Events and ticket types

func (s *MongoStore) InsertEvent(ctx context.Context, e *collections.Event) error {
	return e.Create(ctx)
}

func (s *MongoStore) GetEvent(ctx context.Context, id primitive.ObjectID) (*collections.Event, error) {
	e := &collections.Event{}
	if err := e.First(ctx, bson.M{"_id": id, "deleted_at": bson.M{"$exists": false}}); err != nil {
		return nil, notFound(err, consts.ErrEventNotFound)
	}
	return e, nil
}

func (s *MongoStore) ListPublishedEvents(ctx context.Context) ([]collections.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "schedule.start_at", Value: 1}})
	return (&collections.Event{}).Find(ctx, bson.M{"status": consts.EventPublished}, opts)
}

func (s *MongoStore) SetEventStatus(ctx context.Context, id primitive.ObjectID, from []consts.EventStatus, to consts.EventStatus, now time.Time) (*collections.Event, error) {
	e := &collections.Event{}
	err := e.Update(ctx, bson.M{
		"_id":        id,
		"status":     bson.M{"$in": from},
		"deleted_at": bson.M{"$exists": false},
	}, bson.M{"$set": bson.M{"status": to, "updated_at": now}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := s.GetEvent(ctx, id); err != nil {
			return nil, err
		}
		return nil, consts.ErrInvalidStatusTransition
	}
	if err != nil {
		return nil, err
	}
	return s.GetEvent(ctx, id)
}

func (s *MongoStore) SetEventStaff(ctx context.Context, id, staffID primitive.ObjectID, assigned bool, now time.Time) (*collections.Event, error) {
	op := "$pull"
	if assigned {
		op = "$addToSet"
	}
	e := &collections.Event{}
	err := e.Update(ctx, bson.M{"_id": id, "deleted_at": bson.M{"$exists": false}}, bson.M{
		op:     bson.M{"staff_ids": staffID},
		"$set": bson.M{"updated_at": now},
	})
	if err != nil {
		return nil, notFound(err, consts.ErrEventNotFound)
	}
	return s.GetEvent(ctx, id)
}

func (s *MongoStore) DeleteEvent(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	e := &collections.Event{}
	err := e.Update(ctx, bson.M{
		"_id":        id,
		"status":     bson.M{"$ne": consts.EventPublished},
		"deleted_at": bson.M{"$exists": false},
	}, bson.M{"$set": bson.M{"deleted_at": now, "updated_at": now}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errPreconditionFailed
	}
	return err
}

func (s *MongoStore) InsertTicketType(ctx context.Context, tt *collections.TicketType) error {
	return tt.Create(ctx)
}

func (s *MongoStore) ListTicketTypes(ctx context.Context, eventID primitive.ObjectID) ([]collections.TicketType, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return (&collections.TicketType{}).Find(ctx, bson.M{"event_id": eventID}, opts)
}

func (s *MongoStore) IncreaseCapacity(ctx context.Context, id primitive.ObjectID, capacity int, now time.Time) (*collections.TicketType, error) {
	tt := &collections.TicketType{}
	err := tt.Update(ctx, bson.M{
		"_id":                id,
		"quantity_available": bson.M{"$lte": capacity},
	}, bson.M{"$set": bson.M{"quantity_available": capacity, "updated_at": now}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := s.GetTicketType(ctx, id); err != nil {
			return nil, err
		}
		return nil, consts.ErrCapacityDecrease
	}
	if err != nil {
		return nil, err
	}
	return s.GetTicketType(ctx, id)
}

func (s *MongoStore) SetTicketTypeActive(ctx context.Context, id primitive.ObjectID, active bool, now time.Time) (*collections.TicketType, error) {
	tt := &collections.TicketType{}
	err := tt.Update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"active": active, "updated_at": now}})
	if err != nil {
		return nil, notFound(err, consts.ErrTicketTypeNotFound)
	}
	return s.GetTicketType(ctx, id)
}

// Orders

func (s *MongoStore) InsertOrder(ctx context.Context, o *collections.Order) error {
	return o.Create(ctx)
}

func (s *MongoStore) GetOrder(ctx context.Context, id primitive.ObjectID) (*collections.Order, error) {
	o := &collections.Order{}
	if err := o.First(ctx, bson.M{"_id": id}); err != nil {
		return nil, notFound(err, consts.ErrOrderNotFound)
	}
	return o, nil
}

func (s *MongoStore) MarkOrderPaid(ctx context.Context, id primitive.ObjectID, ref string, now time.Time) (*collections.Order, bool, error) {
	o := &collections.Order{ID: id}
	err := o.Transition(ctx, consts.OrderPending, consts.OrderPaid, bson.M{
		"payment_ref": ref,
		"paid_at":     now,
		"updated_at":  now,
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		cur, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if cur.Status == consts.OrderPaid {
			return cur, false, nil
		}
		return cur, false, consts.ErrOrderNotPending
	}
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

func (s *MongoStore) CancelOrder(ctx context.Context, id primitive.ObjectID, now time.Time) (*collections.Order, bool, error) {
	o := &collections.Order{ID: id}
	err := o.Transition(ctx, consts.OrderPending, consts.OrderCancelled, bson.M{
		"cancelled_at": now,
		"updated_at":   now,
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		cur, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, false, err
		}
		switch cur.Status {
		case consts.OrderCancelled:
			return cur, false, nil
		case consts.OrderPaid:
			return cur, false, consts.ErrOrderAlreadyPaid
		default:
			return cur, false, consts.ErrOrderNotPending
		}
	}
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

func (s *MongoStore) SetOrderProvider(ctx context.Context, id primitive.ObjectID, provider string, now time.Time) error {
	o := &collections.Order{}
	err := o.Update(ctx, bson.M{"_id": id, "status": consts.OrderPending},
		bson.M{"$set": bson.M{"payment_provider": provider, "updated_at": now}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return consts.ErrOrderNotPending
	}
	return err
}

func (s *MongoStore) PendingOrdersExpiredBy(ctx context.Context, now time.Time, limit int) ([]collections.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}).SetLimit(int64(limit))
	return (&collections.Order{}).Find(ctx, bson.M{
		"status":     consts.OrderPending,
		"expires_at": bson.M{"$lte": now},
	}, opts)
}

func (s *MongoStore) MarkOrderFulfilled(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	o := &collections.Order{}
	err := o.Update(ctx, bson.M{"_id": id, "status": consts.OrderPaid, "fulfilled_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"fulfilled_at": now, "updated_at": now}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Already stamped by a concurrent confirmation.
		return nil
	}
	return err
}

func (s *MongoStore) UnfulfilledPaidOrders(ctx context.Context, paidBy time.Time, limit int) ([]collections.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "paid_at", Value: 1}}).SetLimit(int64(limit))
	return (&collections.Order{}).Find(ctx, bson.M{
		"status":       consts.OrderPaid,
		"fulfilled_at": bson.M{"$exists": false},
		"paid_at":      bson.M{"$lte": paidBy},
	}, opts)
}

func (s *MongoStore) ListOrdersByBuyer(ctx context.Context, buyerID primitive.ObjectID) ([]collections.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return (&collections.Order{}).Find(ctx, bson.M{"buyer_id": buyerID}, opts)
}

// Coupons

func (s *MongoStore) InsertCoupon(ctx context.Context, c *collections.Coupon) error {
	err := c.Create(ctx)
	if mongo.IsDuplicateKeyError(err) {
		return consts.ErrDuplicateCouponCode
	}
	return err
}

func (s *MongoStore) ListCouponsByOrganizer(ctx context.Context, organizerID primitive.ObjectID) ([]collections.Coupon, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return (&collections.Coupon{}).Find(ctx, bson.M{"organizer_id": organizerID}, opts)
}

func (s *MongoStore) GetCouponByCode(ctx context.Context, organizerID primitive.ObjectID, code string) (*collections.Coupon, error) {
	c := &collections.Coupon{}
	if err := c.First(ctx, bson.M{"organizer_id": organizerID, "code": code}); err != nil {
		return nil, notFound(err, consts.ErrCouponNotFound)
	}
	return c, nil
}

func (s *MongoStore) RedeemCoupon(ctx context.Context, orderID, couponID primitive.ObjectID) error {
	capReached := false
	err := s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		capReached = false

		o := &collections.Order{}
		err := o.Update(sc, bson.M{"_id": orderID, "coupon_redeemed": false},
			bson.M{"$set": bson.M{"coupon_redeemed": true}})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		if err != nil {
			return err
		}

		c := &collections.Coupon{}
		err = c.Update(sc, bson.M{
			"_id": couponID,
			"$or": bson.A{
				bson.M{"max_uses": nil},
				bson.M{"$expr": bson.M{"$lt": bson.A{"$used_count", "$max_uses"}}},
			},
		}, bson.M{"$inc": bson.M{"used_count": 1}})
		if errors.Is(err, mongo.ErrNoDocuments) {
			capReached = true
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	if capReached {
		return consts.ErrCouponUsageCapReached
	}
	return nil
}

// Tickets

func (s *MongoStore) InsertTicket(ctx context.Context, t *collections.Ticket) error {
	err := t.Create(ctx)
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), "issue_key") {
			return consts.ErrDuplicateIssueKey
		}
		return consts.ErrDuplicateTicketCode
	}
	return err
}

func (s *MongoStore) GetTicket(ctx context.Context, id primitive.ObjectID) (*collections.Ticket, error) {
	return s.firstTicket(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetTicketByIssueKey(ctx context.Context, key string) (*collections.Ticket, error) {
	return s.firstTicket(ctx, bson.M{"issue_key": key})
}

func (s *MongoStore) GetTicketByCode(ctx context.Context, code string) (*collections.Ticket, error) {
	return s.firstTicket(ctx, bson.M{"code": code})
}

func (s *MongoStore) firstTicket(ctx context.Context, filter bson.M) (*collections.Ticket, error) {
	t := &collections.Ticket{}
	if err := t.First(ctx, filter); err != nil {
		return nil, notFound(err, consts.ErrTicketNotFound)
	}
	return t, nil
}

func (s *MongoStore) TicketCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := (&collections.Ticket{}).Count(ctx, bson.M{"code": code})
	return n > 0, err
}

func (s *MongoStore) MarkTicketUsed(ctx context.Context, code string, eventID primitive.ObjectID, now time.Time) (*collections.Ticket, error) {
	t := &collections.Ticket{}
	err := t.UpdateAndGet(ctx, bson.M{
		"code":            code,
		"event_id":        eventID,
		"is_used":         false,
		"transfer_status": bson.M{"$ne": consts.TicketTransferPending},
	}, bson.M{"$set": bson.M{"is_used": true, "used_at": now, "updated_at": now}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errPreconditionFailed
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *MongoStore) ListTicketsByHolder(ctx context.Context, holderID primitive.ObjectID) ([]collections.Ticket, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return (&collections.Ticket{}).Find(ctx, bson.M{"holder_id": holderID}, opts)
}

func (s *MongoStore) ListTicketsByOrder(ctx context.Context, orderID primitive.ObjectID) ([]collections.Ticket, error) {
	opts := options.Find().SetSort(bson.D{{Key: "issue_key", Value: 1}})
	return (&collections.Ticket{}).Find(ctx, bson.M{"order_id": orderID}, opts)
}

// Transfers

func (s *MongoStore) BeginTransfer(ctx context.Context, tr *collections.TicketTransfer, now time.Time) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		t := &collections.Ticket{}
		err := t.Update(sc, bson.M{
			"_id":             tr.TicketID,
			"holder_id":       tr.FromAccountID,
			"is_used":         false,
			"transfer_status": consts.TicketTransferNone,
		}, bson.M{"$set": bson.M{"transfer_status": consts.TicketTransferPending, "updated_at": now}})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return errPreconditionFailed
		}
		if err != nil {
			return err
		}

		err = tr.Create(sc)
		if mongo.IsDuplicateKeyError(err) {
			return consts.ErrTransferAlreadyPending
		}
		return err
	})
}

func (s *MongoStore) GetTransfer(ctx context.Context, id primitive.ObjectID) (*collections.TicketTransfer, error) {
	tr := &collections.TicketTransfer{}
	if err := tr.First(ctx, bson.M{"_id": id}); err != nil {
		return nil, notFound(err, consts.ErrTransferNotFound)
	}
	return tr, nil
}

func (s *MongoStore) ResolveTransfer(ctx context.Context, id primitive.ObjectID, to consts.TransferStatus, holder *TransferHolder, now time.Time) (*collections.TicketTransfer, error) {
	var out *collections.TicketTransfer
	err := s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		set := bson.M{"resolved_at": now}
		ticketSet := bson.M{"transfer_status": consts.TicketTransferNone, "updated_at": now}
		if to == consts.TransferAccepted {
			set["to_account_id"] = holder.AccountID
			ticketSet = bson.M{
				"transfer_status": consts.TicketTransferCompleted,
				"holder_id":       holder.AccountID,
				"attendee_name":   holder.Name,
				"attendee_email":  holder.Email,
				"updated_at":      now,
			}
		}

		tr := &collections.TicketTransfer{ID: id}
		err := tr.Resolve(sc, to, set)
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, err := s.GetTransfer(sc, id); err != nil {
				return err
			}
			return consts.ErrTransferAlreadyResolved
		}
		if err != nil {
			return err
		}

		t := &collections.Ticket{}
		err = t.Update(sc, bson.M{"_id": tr.TicketID, "transfer_status": consts.TicketTransferPending},
			bson.M{"$set": ticketSet})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return errPreconditionFailed
		}
		if err != nil {
			return err
		}
		out = tr
		return nil
	})
	return out, err
}

func (s *MongoStore) ListPendingTransfersTo(ctx context.Context, email string) ([]collections.TicketTransfer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return (&collections.TicketTransfer{}).Find(ctx, bson.M{"to_email": email, "status": consts.TransferPending}, opts)
}
