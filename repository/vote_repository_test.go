package repository

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestVoteToggle(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	issueID, userID := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("adds vote", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateSuccessResponse(),
		)
		voted, err := NewVoteRepository(mt.Coll, "issues").Toggle(context.Background(), issueID, userID)
		if err != nil || !voted {
			t.Fatalf("Toggle = (%v, %v), want (true, nil)", voted, err)
		}
	})

	mt.Run("removes vote", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		voted, err := NewVoteRepository(mt.Coll, "issues").Toggle(context.Background(), issueID, userID)
		if err != nil || voted {
			t.Fatalf("Toggle = (%v, %v), want (false, nil)", voted, err)
		}
	})

	mt.Run("concurrent insert", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
		)
		voted, err := NewVoteRepository(mt.Coll, "issues").Toggle(context.Background(), issueID, userID)
		if err != nil || !voted {
			t.Fatalf("Toggle = (%v, %v), want (true, nil)", voted, err)
		}
	})
}
