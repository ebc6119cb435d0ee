package client

import (
	"context"
	"time"

	"communa/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoClient struct {
	Client *mongo.Client
}

// NewMongoClient connects and verifies the primary is reachable before
// returning. Slot conflict checks read-then-write, so reads must go to
// the primary.
func NewMongoClient(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) *MongoClient {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(mongoConnTimeout).
		SetReadPreference(readpref.Primary())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatal("MongoDB primary unreachable", "error", err)
	}

	log.Info("Connected to MongoDB")
	return &MongoClient{Client: client}
}
