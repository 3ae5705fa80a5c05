package repository

import (
	"context"
	"time"

	"urbanconnect-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ActivityRepository struct {
	coll *mongo.Collection
}

func NewActivityRepository(coll *mongo.Collection) *ActivityRepository {
	return &ActivityRepository{coll: coll}
}

func (r *ActivityRepository) Log(ctx context.Context, a *models.Activity) error {
	a.ID = primitive.NewObjectID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.coll.InsertOne(ctx, a)
	return err
}

// Recent returns the newest entries first.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	activities := []models.Activity{}
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}
