package repository

import (
	"context"
	"time"

	reservationserrors "communa/internal/reservations/errors"
	"communa/pkg/config"
	"communa/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SlotLockRepository provides operations for advisory locks
type SlotLockRepository interface {
	Create(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error)
	Delete(ctx context.Context, lockID string) error
}

type mongoSlotLockRepository struct {
	collection *mongo.Collection
}

func NewSlotLockRepository(cfg *config.Config) SlotLockRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoSlotLockRepository{
		collection: db.Collection("Reservation_locks"),
	}
}

// Create inserts the lock document. The unique _id is the mutual
// exclusion: a duplicate key means another request holds the slot.
func (r *mongoSlotLockRepository) Create(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
	lock.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, reservationserrors.ErrSlotConflict
		}
		return nil, err
	}

	return lock, nil
}

// Delete removes an advisory lock
func (r *mongoSlotLockRepository) Delete(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
