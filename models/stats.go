package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// CountBucket is one group of an aggregation, keyed by status or category.
type CountBucket struct {
	Name  string `bson:"_id" json:"name"`
	Count int64  `bson:"count" json:"count"`
}

// DailyCount is the number of issues reported on one UTC day (YYYY-MM-DD).
type DailyCount struct {
	Date  string `bson:"_id" json:"date"`
	Count int64  `bson:"count" json:"count"`
}

// IssueStats summarises the issue collection for the admin dashboard.
type IssueStats struct {
	Total      int64
	ByStatus   []CountBucket
	ByCategory []CountBucket
	Daily      []DailyCount
}

type VoteTally struct {
	IssueID  primitive.ObjectID `bson:"_id" json:"id"`
	Title    string             `bson:"title" json:"title"`
	Category IssueCategory      `bson:"category" json:"category"`
	Status   IssueStatus        `bson:"status" json:"status"`
	Votes    int64              `bson:"votes" json:"votes"`
}
