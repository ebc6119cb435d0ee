package client

import (
	"context"
	"time"

	"communa/pkg/logger"
)

// Client bundles the external connections a service owns. Connections are
// attached lazily so jobs that only need Mongo do not pay for the rest.
type Client struct {
	Mongo *MongoClient

	log *logger.Logger
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	c.log = log
	c.Mongo = NewMongoClient(log, mongoURI, mongoConnTimeout)
}

func (c *Client) GracefulShutdown() {
	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := c.Mongo.Client.Disconnect(ctx); err != nil {
			if c.log != nil {
				c.log.Error("Failed to disconnect MongoDB", "error", err)
			}
			return
		}
		if c.log != nil {
			c.log.Info("MongoDB connection closed")
		}
	}
}
