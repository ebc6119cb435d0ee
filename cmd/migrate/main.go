package main

import (
	"context"
	"time"

	mongoMigration "communa/internal/migrations/mongo"
	"communa/pkg/config"
)

const (
	JobName = "mongo-migration"

	// Index builds on a populated Reservations collection can take a
	// while; give the job more headroom than a request timeout.
	migrationTimeout = 120 * time.Second
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Applying reservation schema migrations", "timeout", migrationTimeout)
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo.Client); err != nil {
		cfg.Log.Fatal("Reservation schema migration failed", "error", err)
	}
	cfg.Log.Info("Reservation schema migrations applied")
}
