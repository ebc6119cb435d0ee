package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "communa"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Advisory slot locks auto-expire so a crashed request cannot wedge
	// an amenity slot.
	DefaultSlotLockTTL = 10 * time.Second

	// Janitorial approvals must reserve at least this much cleaning time
	// after the party ends.
	DefaultMinCleaningDuration = 2 * time.Hour

	DefaultNotificationsTopic    = "reservation-events"
	DefaultNotificationsDLQTopic = "dlq-reservation-events"

	DefaultPaginationLimit = 100
)
