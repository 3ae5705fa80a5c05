package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"urbanconnect-be/events"
	"urbanconnect-be/models"
	"urbanconnect-be/repository"
	"urbanconnect-be/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatusUpdate is an administrator's requested status change.
type StatusUpdate struct {
	Status          models.IssueStatus
	Resolution      string
	RejectionReason string
	AfterImage      *Image
}

// AdminTriage holds every administrative mutation of an issue. Each one is
// recorded in the activity feed and announced to subscribers.
type AdminTriage struct {
	issues   IssueStore
	workers  WorkerDirectory
	media    MediaStore
	activity ActivityLog
	events   Publisher
	log      *slog.Logger
	now      func() time.Time
}

type TriageDeps struct {
	Issues   IssueStore
	Workers  WorkerDirectory
	Media    MediaStore
	Activity ActivityLog
	Events   Publisher
	Log      *slog.Logger
}

func NewAdminTriage(d TriageDeps) *AdminTriage {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &AdminTriage{
		issues:   d.Issues,
		workers:  d.Workers,
		media:    d.Media,
		activity: d.Activity,
		events:   d.Events,
		log:      d.Log,
		now:      time.Now,
	}
}

// SetStatus moves an issue along the status machine. Resolving uploads the
// after image first and writes it together with the status; if that write
// fails the image is removed again.
func (t *AdminTriage) SetStatus(ctx context.Context, actor *Actor, id primitive.ObjectID, upd StatusUpdate) (*models.Issue, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !upd.Status.Valid() {
		return nil, withMessage(ErrInvalidInput, "Invalid status")
	}

	current, err := t.issues.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if !models.CanTransition(current.Status, upd.Status) {
		return nil, withMessage(ErrInvalidTransition,
			"Cannot change status from "+string(current.Status)+" to "+string(upd.Status))
	}

	set := bson.M{}
	var uploaded string
	switch upd.Status {
	case models.Resolved:
		resolution := strings.TrimSpace(upd.Resolution)
		if resolution == "" {
			return nil, withMessage(ErrInvalidInput, "Resolution details are required")
		}
		if upd.AfterImage == nil || len(upd.AfterImage.Data) == 0 {
			return nil, withMessage(ErrInvalidInput, "An after image is required to resolve an issue")
		}
		if err := checkImages([]Image{*upd.AfterImage}); err != nil {
			return nil, err
		}
		uploaded, err = t.media.Store(ctx, storage.After, upd.AfterImage.Data, upd.AfterImage.ContentType)
		if err != nil {
			return nil, withCause(ErrUploadFailed, err)
		}
		now := t.now().UTC()
		set["resolution"] = resolution
		set["after_images"] = append(append([]string{}, current.AfterImages...), uploaded)
		set["resolved_at"] = now
		set["resolved_by"] = models.ResolvedBy{ID: actor.UserID, Name: actor.Name, Department: actor.Department}
		set["stage"] = models.StageResolved
	case models.Rejected:
		reason := strings.TrimSpace(upd.RejectionReason)
		if reason == "" {
			return nil, withMessage(ErrInvalidInput, "A rejection reason is required")
		}
		set["rejection_reason"] = reason
	}

	issue, err := t.issues.Transition(ctx, id, upd.Status, set)
	if err != nil {
		if uploaded != "" {
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			discardMedia(cctx, t.media, t.log, []string{uploaded})
			cancel()
		}
		return nil, storeError(err)
	}

	t.record(ctx, actor, issue, "Issue marked as "+string(issue.Status))
	publish(ctx, t.events, t.log, events.StatusChanged, issue)
	return issue, nil
}

// Assign hands an open issue to a worker and moves it to in-progress.
func (t *AdminTriage) Assign(ctx context.Context, actor *Actor, id, workerID primitive.ObjectID, instructions string) (*models.Issue, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	worker, err := t.workers.FindByID(ctx, workerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, withMessage(ErrNotFound, "Worker not found")
	}
	if err != nil {
		return nil, persistence(err)
	}

	issue, err := t.issues.Assign(ctx, id, workerID, strings.TrimSpace(instructions))
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, withMessage(ErrInvalidTransition, "Closed issues cannot be assigned")
		}
		return nil, storeError(err)
	}

	t.record(ctx, actor, issue, "Issue assigned to "+worker.Name)
	publish(ctx, t.events, t.log, events.IssueAssigned, issue)
	return issue, nil
}

// AdvanceStage moves an open issue forward in the review sequence. The
// resolved stage is only reachable through SetStatus.
func (t *AdminTriage) AdvanceStage(ctx context.Context, actor *Actor, id primitive.ObjectID, stage models.IssueStage) (*models.Issue, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !stage.Valid() || stage == models.StageResolved {
		return nil, withMessage(ErrInvalidInput, "Invalid stage")
	}
	// Every issue starts there; nothing can advance into it.
	if stage == models.StageInitial {
		return nil, withMessage(ErrInvalidInput, "Issues cannot be moved back to the initial stage")
	}

	issue, err := t.issues.AdvanceStage(ctx, id, stage)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, withMessage(ErrInvalidTransition, "Stage can only move forward on open issues")
		}
		return nil, storeError(err)
	}

	label, _ := models.Progress(issue.Stage)
	t.record(ctx, actor, issue, "Issue moved to "+label)
	publish(ctx, t.events, t.log, events.StageChanged, issue)
	return issue, nil
}

func (t *AdminTriage) RecentActivity(ctx context.Context, actor *Actor, limit int) ([]models.Activity, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	entries, err := t.activity.Recent(ctx, limit)
	if err != nil {
		return nil, persistence(err)
	}
	return entries, nil
}

func (t *AdminTriage) Workers(ctx context.Context, actor *Actor) ([]models.Worker, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	workers, err := t.workers.List(ctx)
	if err != nil {
		return nil, persistence(err)
	}
	return workers, nil
}

// record writes the activity entry for a committed mutation. Failure is
// logged only since the mutation cannot be undone.
func (t *AdminTriage) record(ctx context.Context, actor *Actor, issue *models.Issue, action string) {
	id := issue.ID
	entry := &models.Activity{
		Action:    action,
		IssueID:   &id,
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		CreatedAt: t.now().UTC(),
	}
	if err := t.activity.Log(ctx, entry); err != nil {
		t.log.Error("record activity", "issue_id", id.Hex(), "action", action, "error", err)
	}
	t.log.Info(action, "issue_id", id.Hex(), "admin_id", actor.UserID.Hex())
}

// storeError maps repository sentinels onto service errors.
func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return withMessage(ErrInvalidTransition, "Issue was changed by someone else, reload and try again")
	}
	return persistence(err)
}
