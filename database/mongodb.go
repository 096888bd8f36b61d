package database

import (
	"TicketMarket/configs"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDBConfig struct {
	Name string
	URI  string
}

func NewMongoDBConfig() *MongoDBConfig {
	return &MongoDBConfig{
		Name: configs.GetDatabaseName(),
		URI:  configs.GetDatabaseURI(),
	}
}

var (
	client    *mongo.Client
	db        *mongo.Database
	mongoOnce sync.Once
)

func ConnectMongo() error {
	var err error
	mongoOnce.Do(func() {
		db, err = Open(context.Background(), NewMongoDBConfig())
		if err == nil {
			client = db.Client()
		}
	})

	return err
}

// Open connects and pings a database. The returned database uses the
// decimal-aware registry.
func Open(ctx context.Context, cfg *MongoDBConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetRegistry(NewRegistry()))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := c.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	logrus.WithField("database", cfg.Name).Info("connected to mongodb")
	return c.Database(cfg.Name), nil
}

func GetDB() *mongo.Database {
	return db
}

func DisconnectMongo(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes the ticket
// lifecycle relies on. Creating an existing index is a no-op.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		"tickets": {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "issue_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "holder_id", Value: 1}}},
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
		"ticket_transfers": {
			{
				Keys: bson.D{{Key: "ticket_id", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": "pending"}),
			},
			{Keys: bson.D{{Key: "to_email", Value: 1}, {Key: "status", Value: 1}}},
		},
		"coupons": {
			{Keys: bson.D{{Key: "organizer_id", Value: 1}, {Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"orders": {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
			{Keys: bson.D{{Key: "buyer_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "fulfilled_at", Value: 1}, {Key: "paid_at", Value: 1}}},
		},
		"reservations": {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
		},
		"ticket_types": {
			{Keys: bson.D{{Key: "event_id", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Use installs an already opened database as the process wide handle.
func Use(d *mongo.Database) {
	db = d
	client = d.Client()
}
