package repository

import (
	"context"
	"time"

	"urbanconnect-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type VoteRepository struct {
	coll *mongo.Collection
	// issues names the collection TopVoted joins against.
	issues string
}

func NewVoteRepository(coll *mongo.Collection, issues string) *VoteRepository {
	return &VoteRepository{coll: coll, issues: issues}
}

// Toggle adds the user's vote on the issue, or removes it if one exists.
// It reports whether the user has voted afterwards.
func (r *VoteRepository) Toggle(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"issue_id": issueID, "user_id": userID})
	if err != nil {
		return false, err
	}
	if res.DeletedCount > 0 {
		return false, nil
	}

	_, err = r.coll.InsertOne(ctx, models.Vote{
		ID:        primitive.NewObjectID(),
		IssueID:   issueID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
	// A concurrent toggle inserted first; the vote exists either way.
	if mongo.IsDuplicateKeyError(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *VoteRepository) Count(ctx context.Context, issueID primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"issue_id": issueID})
}

func (r *VoteRepository) HasVoted(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"issue_id": issueID, "user_id": userID})
	return n > 0, err
}
