package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"urbanconnect-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("state changed concurrently or precondition not met")
	ErrDuplicate = errors.New("duplicate key")
	ErrNoImages  = errors.New("issue has no before images")
)

type IssueRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewIssueRepository(coll *mongo.Collection) *IssueRepository {
	return &IssueRepository{coll: coll, now: time.Now}
}

// Create persists a new issue. Lifecycle fields are always reset here: the
// status is pending and the stage initial whatever the caller put in.
func (r *IssueRepository) Create(ctx context.Context, issue *models.Issue) error {
	if len(issue.BeforeImages) == 0 {
		return ErrNoImages
	}
	now := r.now().UTC()
	issue.ID = primitive.NewObjectID()
	issue.Status = models.Pending
	issue.Stage = models.StageInitial
	issue.AfterImages = nil
	issue.Resolution = ""
	issue.ResolvedBy = nil
	issue.ResolvedAt = nil
	issue.RejectionReason = ""
	issue.AssignedTo = nil
	issue.Instructions = ""
	issue.Feedback = nil
	issue.CreatedAt = now
	issue.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, issue)
	return err
}

func (r *IssueRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// MaxPage bounds IssueFilter.Page so the skip offset cannot overflow.
const MaxPage = 10000

// IssueFilter selects issues for listing. Zero values match everything.
type IssueFilter struct {
	Status   models.IssueStatus
	Category models.IssueCategory
	UserID   *primitive.ObjectID
	Search   string
	Oldest   bool
	Page     int
	Limit    int
}

func (f IssueFilter) query() bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.UserID != nil {
		filter["user_id"] = *f.UserID
	}
	if f.Search != "" {
		pattern := regexp.QuoteMeta(f.Search)
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": pattern, "$options": "i"}},
			{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return filter
}

// List returns one page of matching issues and the total match count.
func (r *IssueRepository) List(ctx context.Context, f IssueFilter) ([]models.Issue, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	f.Page = min(f.Page, MaxPage)
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	filter := f.query()

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	order := -1
	if f.Oldest {
		order = 1
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: order}}).
		SetSkip(int64(f.Page-1) * int64(f.Limit)).
		SetLimit(int64(f.Limit))

	cursor, err := r.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0, f.Limit)
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

// Transition moves an issue to status to, applying set in the same write.
// The write only happens if the stored status is one that may move to to.
func (r *IssueRepository) Transition(ctx context.Context, id primitive.ObjectID, to models.IssueStatus, set bson.M) (*models.Issue, error) {
	update := bson.M{}
	for k, v := range set {
		update[k] = v
	}
	update["status"] = to
	update["updated_at"] = r.now().UTC()

	filter := bson.M{"_id": id, "status": bson.M{"$in": models.SourcesOf(to)}}
	return r.guardedUpdate(ctx, id, filter, bson.M{"$set": update})
}

// Assign hands an open issue to a worker and marks it in progress.
func (r *IssueRepository) Assign(ctx context.Context, id, workerID primitive.ObjectID, instructions string) (*models.Issue, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": []models.IssueStatus{models.Pending, models.InProgress}}}
	update := bson.M{"$set": bson.M{
		"status":       models.InProgress,
		"assigned_to":  workerID,
		"instructions": instructions,
		"updated_at":   r.now().UTC(),
	}}
	return r.guardedUpdate(ctx, id, filter, update)
}

// AdvanceStage moves an open issue forward to stage. Stages never move
// backwards.
func (r *IssueRepository) AdvanceStage(ctx context.Context, id primitive.ObjectID, stage models.IssueStage) (*models.Issue, error) {
	var earlier []models.IssueStage
	for _, s := range []models.IssueStage{models.StageInitial, models.StageAIAnalysis, models.StageVerification, models.StageModeration} {
		if s.Before(stage) {
			earlier = append(earlier, s)
		}
	}
	if len(earlier) == 0 {
		return nil, ErrConflict
	}
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": []models.IssueStatus{models.Pending, models.InProgress}},
		"stage":  bson.M{"$in": earlier},
	}
	update := bson.M{"$set": bson.M{"stage": stage, "updated_at": r.now().UTC()}}
	return r.guardedUpdate(ctx, id, filter, update)
}

// SetFeedback attaches feedback once, only for the owner of a resolved issue.
func (r *IssueRepository) SetFeedback(ctx context.Context, id, userID primitive.ObjectID, fb models.Feedback) (*models.Issue, error) {
	filter := bson.M{
		"_id":      id,
		"user_id":  userID,
		"status":   models.Resolved,
		"feedback": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"feedback": fb, "updated_at": r.now().UTC()}}
	return r.guardedUpdate(ctx, id, filter, update)
}

func (r *IssueRepository) guardedUpdate(ctx context.Context, id primitive.ObjectID, filter, update bson.M) (*models.Issue, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var issue models.Issue
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&issue)
	if err == nil {
		return &issue, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrConflict
}
