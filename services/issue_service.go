package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"urbanconnect-be/events"
	"urbanconnect-be/models"
	"urbanconnect-be/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueService serves reads, votes and citizen feedback.
type IssueService struct {
	issues IssueStore
	votes  VoteStore
	events Publisher
	log    *slog.Logger
	now    func() time.Time
}

func NewIssueService(issues IssueStore, votes VoteStore, pub Publisher, log *slog.Logger) *IssueService {
	if log == nil {
		log = slog.Default()
	}
	return &IssueService{issues: issues, votes: votes, events: pub, log: log, now: time.Now}
}

// Page is one page of issue views.
type Page struct {
	Issues []models.IssueView `json:"issues"`
	Total  int64              `json:"total"`
	Page   int                `json:"page"`
	Limit  int                `json:"limit"`
}

func (s *IssueService) Get(ctx context.Context, actor *Actor, id primitive.ObjectID) (*models.IssueView, error) {
	issue, err := s.issues.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	view, err := s.decorate(ctx, actor, *issue)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *IssueService) List(ctx context.Context, actor *Actor, f repository.IssueFilter) (*Page, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, withMessage(ErrInvalidInput, "Invalid status filter")
	}
	if f.Category != "" && !f.Category.Valid() {
		return nil, withMessage(ErrInvalidInput, "Invalid category filter")
	}
	if f.Page > repository.MaxPage {
		return nil, withMessage(ErrInvalidInput, fmt.Sprintf("Page must be at most %d", repository.MaxPage))
	}
	f.Search = strings.TrimSpace(f.Search)

	issues, total, err := s.issues.List(ctx, f)
	if err != nil {
		return nil, persistence(err)
	}
	views := make([]models.IssueView, 0, len(issues))
	for _, issue := range issues {
		view, err := s.decorate(ctx, actor, issue)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return &Page{Issues: views, Total: total, Page: page, Limit: limit}, nil
}

// Mine lists the caller's own reports, newest first.
func (s *IssueService) Mine(ctx context.Context, actor *Actor, f repository.IssueFilter) (*Page, error) {
	if !actor.authenticated() {
		return nil, ErrAuthRequired
	}
	uid := actor.UserID
	f.UserID = &uid
	return s.List(ctx, actor, f)
}

// ToggleVote adds or removes the caller's vote and returns the new count.
func (s *IssueService) ToggleVote(ctx context.Context, actor *Actor, id primitive.ObjectID) (bool, int64, error) {
	if !actor.authenticated() {
		return false, 0, ErrAuthRequired
	}
	if _, err := s.issues.FindByID(ctx, id); err != nil {
		return false, 0, storeError(err)
	}
	voted, err := s.votes.Toggle(ctx, id, actor.UserID)
	if err != nil {
		return false, 0, persistence(err)
	}
	count, err := s.votes.Count(ctx, id)
	if err != nil {
		return false, 0, persistence(err)
	}
	return voted, count, nil
}

// SubmitFeedback records the owner's rating of a resolved issue, once.
func (s *IssueService) SubmitFeedback(ctx context.Context, actor *Actor, id primitive.ObjectID, rating int, comment string) (*models.Issue, error) {
	if !actor.authenticated() {
		return nil, ErrAuthRequired
	}
	if rating < 1 || rating > 5 {
		return nil, withMessage(ErrInvalidInput, "Rating must be between 1 and 5")
	}

	current, err := s.issues.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if current.UserID != actor.UserID {
		return nil, withMessage(ErrForbidden, "Only the reporter can rate this issue")
	}
	if current.Status != models.Resolved {
		return nil, withMessage(ErrInvalidTransition, "Feedback can only be given once the issue is resolved")
	}
	if current.Feedback != nil {
		return nil, withMessage(ErrInvalidTransition, "Feedback was already submitted")
	}

	fb := models.Feedback{
		Rating:      rating,
		Comment:     strings.TrimSpace(comment),
		SubmittedAt: s.now().UTC(),
	}
	issue, err := s.issues.SetFeedback(ctx, id, actor.UserID, fb)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, withMessage(ErrInvalidTransition, "Feedback was already submitted")
		}
		return nil, storeError(err)
	}

	s.log.Info("feedback submitted", "issue_id", id.Hex(), "rating", rating)
	publish(ctx, s.events, s.log, events.FeedbackAdded, issue)
	return issue, nil
}

func (s *IssueService) decorate(ctx context.Context, actor *Actor, issue models.Issue) (models.IssueView, error) {
	view := issue.View()
	if s.votes == nil {
		return view, nil
	}
	count, err := s.votes.Count(ctx, issue.ID)
	if err != nil {
		return view, persistence(err)
	}
	view.Votes = count
	if actor.authenticated() {
		voted, err := s.votes.HasVoted(ctx, issue.ID, actor.UserID)
		if err != nil {
			return view, persistence(err)
		}
		view.UserHasVoted = voted
	}
	return view, nil
}
