package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity is one entry of the administrative recent-activity feed.
type Activity struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Action    string              `bson:"action" json:"action"`
	IssueID   *primitive.ObjectID `bson:"issue_id,omitempty" json:"issue_id,omitempty"`
	ActorID   primitive.ObjectID  `bson:"actor_id" json:"actor_id"`
	ActorName string              `bson:"actor_name" json:"actor_name"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
