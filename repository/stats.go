package repository

import (
	"context"
	"time"

	"urbanconnect-be/models"

	"go.mongodb.org/mongo-driver/bson"
)

// Stats counts issues by status and category, and per UTC day for issues
// created at or after since, in one aggregation.
func (r *IssueRepository) Stats(ctx context.Context, since time.Time) (*models.IssueStats, error) {
	groupBy := func(field string) []bson.M {
		return []bson.M{
			{"$group": bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}},
			{"$sort": bson.M{"count": -1}},
		}
	}
	pipeline := []bson.M{
		{"$facet": bson.M{
			"total":       []bson.M{{"$count": "n"}},
			"by_status":   groupBy("status"),
			"by_category": groupBy("category"),
			"daily": []bson.M{
				{"$match": bson.M{"created_at": bson.M{"$gte": since.UTC()}}},
				{"$group": bson.M{
					"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
					"count": bson.M{"$sum": 1},
				}},
				{"$sort": bson.M{"_id": 1}},
			},
		}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var facets []struct {
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
		ByStatus   []models.CountBucket `bson:"by_status"`
		ByCategory []models.CountBucket `bson:"by_category"`
		Daily      []models.DailyCount  `bson:"daily"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, err
	}

	stats := &models.IssueStats{}
	if len(facets) == 0 {
		return stats, nil
	}
	f := facets[0]
	if len(f.Total) > 0 {
		stats.Total = f.Total[0].N
	}
	stats.ByStatus = f.ByStatus
	stats.ByCategory = f.ByCategory
	stats.Daily = f.Daily
	return stats, nil
}

// TopVoted returns the limit issues with the most votes, joined with the
// issue's title, category and status.
func (r *VoteRepository) TopVoted(ctx context.Context, limit int) ([]models.VoteTally, error) {
	if limit < 1 {
		limit = 5
	}
	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$issue_id", "votes": bson.M{"$sum": 1}}},
		{"$sort": bson.D{{Key: "votes", Value: -1}, {Key: "_id", Value: 1}}},
		{"$limit": limit},
		{"$lookup": bson.M{
			"from":         r.issues,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "issue",
		}},
		{"$unwind": "$issue"},
		{"$project": bson.M{
			"votes":    1,
			"title":    "$issue.title",
			"category": "$issue.category",
			"status":   "$issue.status",
		}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tallies := make([]models.VoteTally, 0, limit)
	if err := cursor.All(ctx, &tallies); err != nil {
		return nil, err
	}
	return tallies, nil
}
