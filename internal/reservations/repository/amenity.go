package repository

import (
	"context"
	"errors"
	"fmt"

	reservationserrors "communa/internal/reservations/errors"
	"communa/pkg/config"
	"communa/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	AmenityCollectionName = "Amenities"
)

// AmenityRepository is a read-only view of the amenity catalog. Amenity
// documents are owned by the community administration service.
type AmenityRepository interface {
	FindByID(ctx context.Context, communityID, amenityID string) (*model.Amenity, error)
}

type mongoAmenityRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAmenityRepository(cfg *config.Config) AmenityRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoAmenityRepository{
		cfg:        cfg,
		collection: db.Collection(AmenityCollectionName),
	}
}

func (r *mongoAmenityRepository) FindByID(ctx context.Context, communityID, amenityID string) (*model.Amenity, error) {
	if _, ok := ctx.(mongo.SessionContext); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ReadTimeout)
		defer cancel()
	}

	objectID, err := primitive.ObjectIDFromHex(amenityID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, amenityID)
	}

	filter := bson.M{
		"_id":          objectID,
		"community_id": communityID,
	}

	var amenity model.Amenity
	err = r.collection.FindOne(ctx, filter).Decode(&amenity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrAmenityNotFound
		}
		return nil, fmt.Errorf("failed to find amenity: %w", err)
	}

	return &amenity, nil
}
