package collections

import (
	"TicketMarket/database"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 2 * time.Second

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultTimeout)
	}
	return ctx, func() {}
}

func insertOne(ctx context.Context, name string, doc interface{}) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := database.GetDB().Collection(name).InsertOne(ctx, doc)
	return err
}

func findOne(ctx context.Context, name string, filter bson.M, out interface{}, opts ...*options.FindOneOptions) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return database.GetDB().Collection(name).FindOne(ctx, filter, opts...).Decode(out)
}

func findAll[T any](ctx context.Context, name string, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if filter == nil {
		filter = bson.M{}
	}

	cursor, err := database.GetDB().Collection(name).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// updateOne returns mongo.ErrNoDocuments when the filter matched nothing,
// which is how a failed conditional write surfaces to callers.
func updateOne(ctx context.Context, name string, filter bson.M, updateDoc bson.M, opts ...*options.UpdateOptions) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := database.GetDB().Collection(name).UpdateOne(ctx, filter, updateDoc, opts...)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func countDocuments(ctx context.Context, name string, filter bson.M) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return database.GetDB().Collection(name).CountDocuments(ctx, filter)
}

// findOneAndUpdate applies a conditional update and decodes the document as
// it is after the update.
func findOneAndUpdate(ctx context.Context, name string, filter bson.M, updateDoc bson.M, out interface{}) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return database.GetDB().Collection(name).FindOneAndUpdate(ctx, filter, updateDoc, opts).Decode(out)
}
