package services

import (
	"context"
	"math"
	"testing"

	"urbanconnect-be/models"
	"urbanconnect-be/repository"
	"urbanconnect-be/services/mocks"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func newIssueService(t *testing.T) (*IssueService, *mocks.MockIssueStore, *mocks.MockVoteStore, *mocks.MockPublisher) {
	t.Helper()
	ctrl := gomock.NewController(t)
	issues := mocks.NewMockIssueStore(ctrl)
	votes := mocks.NewMockVoteStore(ctrl)
	pub := mocks.NewMockPublisher(ctrl)
	return NewIssueService(issues, votes, pub, nil), issues, votes, pub
}

func TestGetDecoratesView(t *testing.T) {
	svc, issues, votes, _ := newIssueService(t)
	id := primitive.NewObjectID()
	actor := citizen()

	issues.EXPECT().FindByID(gomock.Any(), id).
		Return(&models.Issue{ID: id, Status: models.Pending, Stage: models.StageAIAnalysis}, nil)
	votes.EXPECT().Count(gomock.Any(), id).Return(int64(4), nil)
	votes.EXPECT().HasVoted(gomock.Any(), id, actor.UserID).Return(true, nil)

	view, err := svc.Get(context.Background(), actor, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.StageLabel != "AI Analysis" || view.StageProgress != 50 {
		t.Errorf("stage = %s %d", view.StageLabel, view.StageProgress)
	}
	if view.Votes != 4 || !view.UserHasVoted {
		t.Errorf("votes = %d voted = %v", view.Votes, view.UserHasVoted)
	}
}

func TestGetNotFound(t *testing.T) {
	svc, issues, _, _ := newIssueService(t)
	issues.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, repository.ErrNotFound)

	_, err := svc.Get(context.Background(), nil, primitive.NewObjectID())
	wantCode(t, err, CodeNotFound)
}

func TestMineScopesToCaller(t *testing.T) {
	svc, issues, votes, _ := newIssueService(t)
	actor := citizen()

	issues.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, f repository.IssueFilter) ([]models.Issue, int64, error) {
			if f.UserID == nil || *f.UserID != actor.UserID {
				t.Errorf("filter user = %v", f.UserID)
			}
			return []models.Issue{{ID: primitive.NewObjectID()}}, 1, nil
		})
	votes.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	votes.EXPECT().HasVoted(gomock.Any(), gomock.Any(), actor.UserID).Return(false, nil)

	page, err := svc.Mine(context.Background(), actor, repository.IssueFilter{})
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if page.Total != 1 || len(page.Issues) != 1 || page.Page != 1 || page.Limit != 10 {
		t.Errorf("page = %+v", page)
	}
	if page.Issues[0].StageLabel != "Pending Review" || page.Issues[0].StageProgress != 10 {
		t.Errorf("empty stage = %s %d", page.Issues[0].StageLabel, page.Issues[0].StageProgress)
	}
}

func TestListRejectsUnknownFilters(t *testing.T) {
	svc, _, _, _ := newIssueService(t)
	_, err := svc.List(context.Background(), nil, repository.IssueFilter{Status: "closed"})
	wantCode(t, err, CodeInvalidInput)
}

func TestListRejectsHugePage(t *testing.T) {
	svc, _, _, _ := newIssueService(t)
	_, err := svc.List(context.Background(), nil, repository.IssueFilter{Page: math.MaxInt})
	wantCode(t, err, CodeInvalidInput)
}

func TestToggleVote(t *testing.T) {
	svc, issues, votes, _ := newIssueService(t)
	id := primitive.NewObjectID()
	actor := citizen()

	issues.EXPECT().FindByID(gomock.Any(), id).Return(&models.Issue{ID: id}, nil)
	votes.EXPECT().Toggle(gomock.Any(), id, actor.UserID).Return(true, nil)
	votes.EXPECT().Count(gomock.Any(), id).Return(int64(3), nil)

	voted, count, err := svc.ToggleVote(context.Background(), actor, id)
	if err != nil || !voted || count != 3 {
		t.Fatalf("ToggleVote = %v %d %v", voted, count, err)
	}
}

func TestSubmitFeedback(t *testing.T) {
	actor := citizen()
	id := primitive.NewObjectID()

	tests := []struct {
		name    string
		current models.Issue
		rating  int
		code    Code
	}{
		{"not owner", models.Issue{ID: id, UserID: primitive.NewObjectID(), Status: models.Resolved}, 4, CodeForbidden},
		{"not resolved", models.Issue{ID: id, UserID: actor.UserID, Status: models.InProgress}, 4, CodeInvalidTransition},
		{"already given", models.Issue{ID: id, UserID: actor.UserID, Status: models.Resolved, Feedback: &models.Feedback{Rating: 5}}, 4, CodeInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, issues, _, _ := newIssueService(t)
			current := tt.current
			issues.EXPECT().FindByID(gomock.Any(), id).Return(&current, nil)

			_, err := svc.SubmitFeedback(context.Background(), actor, id, tt.rating, "")
			wantCode(t, err, tt.code)
		})
	}

	t.Run("rating out of range", func(t *testing.T) {
		svc, _, _, _ := newIssueService(t)
		_, err := svc.SubmitFeedback(context.Background(), actor, id, 6, "")
		wantCode(t, err, CodeInvalidInput)
	})

	t.Run("accepted", func(t *testing.T) {
		svc, issues, _, pub := newIssueService(t)
		issues.EXPECT().FindByID(gomock.Any(), id).
			Return(&models.Issue{ID: id, UserID: actor.UserID, Status: models.Resolved}, nil)
		issues.EXPECT().SetFeedback(gomock.Any(), id, actor.UserID, gomock.Any()).DoAndReturn(
			func(_ context.Context, _, _ primitive.ObjectID, fb models.Feedback) (*models.Issue, error) {
				if fb.Rating != 5 || fb.Comment != "Quick fix" || fb.SubmittedAt.IsZero() {
					t.Errorf("feedback = %+v", fb)
				}
				return &models.Issue{ID: id, Status: models.Resolved, Feedback: &fb}, nil
			})
		pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		issue, err := svc.SubmitFeedback(context.Background(), actor, id, 5, " Quick fix ")
		if err != nil {
			t.Fatalf("SubmitFeedback: %v", err)
		}
		if issue.Feedback == nil {
			t.Error("feedback missing")
		}
	})
}
