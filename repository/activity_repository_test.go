package repository

import (
	"context"
	"testing"

	"urbanconnect-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestActivityRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("log stamps entry", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		entry := &models.Activity{Action: "Issue marked as resolved", ActorName: "R. Patel"}
		if err := NewActivityRepository(mt.Coll).Log(context.Background(), entry); err != nil {
			t.Fatalf("Log: %v", err)
		}
		if entry.ID.IsZero() || entry.CreatedAt.IsZero() {
			t.Errorf("entry = %+v", entry)
		}
		if started := mt.GetStartedEvent(); started.CommandName != "insert" {
			t.Errorf("command = %s", started.CommandName)
		}
	})

	mt.Run("recent newest first", func(mt *mtest.T) {
		a := toDoc(t, models.Activity{ID: primitive.NewObjectID(), Action: "Issue moved to Verification"})
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, a))

		entries, err := NewActivityRepository(mt.Coll).Recent(context.Background(), 500)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(entries) != 1 || entries[0].Action != "Issue moved to Verification" {
			t.Errorf("entries = %+v", entries)
		}
		cmd := mt.GetStartedEvent().Command
		if limit := cmd.Lookup("limit").AsInt64(); limit != 10 {
			t.Errorf("limit = %d, want the default for an out of range request", limit)
		}
		if order := cmd.Lookup("sort", "created_at").AsInt64(); order != -1 {
			t.Errorf("sort = %d", order)
		}
	})

	mt.Run("recent empty", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))
		entries, err := NewActivityRepository(mt.Coll).Recent(context.Background(), 5)
		if err != nil || entries == nil || len(entries) != 0 {
			t.Fatalf("Recent = %v, %v; want empty non-nil slice", entries, err)
		}
	})
}
