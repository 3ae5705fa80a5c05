package services

//go:generate mockgen -destination=mocks/mock_services.go -package=mocks urbanconnect-be/services IssueStore,Geocoder,ImageClassifier,MediaStore,ActivityLog,WorkerDirectory,VoteStore,Publisher,UserStore,StatsSource,VoteRanking

import (
	"context"
	"time"

	"urbanconnect-be/classifier"
	"urbanconnect-be/events"
	"urbanconnect-be/geocoder"
	"urbanconnect-be/models"
	"urbanconnect-be/repository"
	"urbanconnect-be/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IssueStore interface {
	Create(ctx context.Context, issue *models.Issue) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	List(ctx context.Context, f repository.IssueFilter) ([]models.Issue, int64, error)
	Transition(ctx context.Context, id primitive.ObjectID, to models.IssueStatus, set bson.M) (*models.Issue, error)
	Assign(ctx context.Context, id, workerID primitive.ObjectID, instructions string) (*models.Issue, error)
	AdvanceStage(ctx context.Context, id primitive.ObjectID, stage models.IssueStage) (*models.Issue, error)
	SetFeedback(ctx context.Context, id, userID primitive.ObjectID, fb models.Feedback) (*models.Issue, error)
}

type Geocoder interface {
	Search(ctx context.Context, query string) ([]geocoder.Place, error)
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

type ImageClassifier interface {
	Classify(ctx context.Context, image []byte, contentType string) (classifier.Verdict, error)
}

type MediaStore interface {
	Store(ctx context.Context, ns storage.Namespace, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

type ActivityLog interface {
	Log(ctx context.Context, a *models.Activity) error
	Recent(ctx context.Context, limit int) ([]models.Activity, error)
}

type WorkerDirectory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Worker, error)
	List(ctx context.Context) ([]models.Worker, error)
}

type VoteStore interface {
	Toggle(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error)
	Count(ctx context.Context, issueID primitive.ObjectID) (int64, error)
	HasVoted(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

type StatsSource interface {
	Stats(ctx context.Context, since time.Time) (*models.IssueStats, error)
}

type VoteRanking interface {
	TopVoted(ctx context.Context, limit int) ([]models.VoteTally, error)
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID     primitive.ObjectID
	Role       models.Role
	Name       string
	Department string
}

func (a *Actor) authenticated() bool {
	return a != nil && !a.UserID.IsZero()
}

// requireAdmin distinguishes a missing identity from an insufficient one.
func requireAdmin(a *Actor) error {
	if !a.authenticated() {
		return ErrAuthRequired
	}
	if a.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// Image is one uploaded photo.
type Image struct {
	Data        []byte
	ContentType string
}
