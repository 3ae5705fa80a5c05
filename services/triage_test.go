package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"urbanconnect-be/models"
	"urbanconnect-be/repository"
	"urbanconnect-be/services/mocks"
	"urbanconnect-be/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

type triageMocks struct {
	issues   *mocks.MockIssueStore
	workers  *mocks.MockWorkerDirectory
	media    *mocks.MockMediaStore
	activity *mocks.MockActivityLog
	events   *mocks.MockPublisher
}

func newTriage(t *testing.T) (*AdminTriage, triageMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := triageMocks{
		issues:   mocks.NewMockIssueStore(ctrl),
		workers:  mocks.NewMockWorkerDirectory(ctrl),
		media:    mocks.NewMockMediaStore(ctrl),
		activity: mocks.NewMockActivityLog(ctrl),
		events:   mocks.NewMockPublisher(ctrl),
	}
	tr := NewAdminTriage(TriageDeps{
		Issues:   m.issues,
		Workers:  m.workers,
		Media:    m.media,
		Activity: m.activity,
		Events:   m.events,
	})
	tr.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return tr, m
}

func admin() *Actor {
	return &Actor{UserID: primitive.NewObjectID(), Role: models.RoleAdmin, Name: "R. Patel", Department: "Roads"}
}

func TestSetStatusResolve(t *testing.T) {
	tr, m := newTriage(t)
	id := primitive.NewObjectID()
	actor := admin()
	after := Image{Data: []byte("\x89PNG\r\n\x1a\nafter"), ContentType: "image/png"}

	m.issues.EXPECT().FindByID(gomock.Any(), id).
		Return(&models.Issue{ID: id, Status: models.Pending, BeforeImages: []string{"b"}}, nil)
	m.media.EXPECT().Store(gomock.Any(), storage.After, after.Data, "image/png").
		Return("http://media.test/media/after/1.png", nil)
	m.issues.EXPECT().Transition(gomock.Any(), id, models.Resolved, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ primitive.ObjectID, to models.IssueStatus, set bson.M) (*models.Issue, error) {
			// Status, resolution and after image land in one write.
			images := set["after_images"].([]string)
			resolvedAt := set["resolved_at"].(time.Time)
			by := set["resolved_by"].(models.ResolvedBy)
			if set["resolution"] != "Filled and resurfaced" || by.Department != "Roads" {
				t.Errorf("set = %v", set)
			}
			return &models.Issue{
				ID:          id,
				Status:      to,
				Stage:       set["stage"].(models.IssueStage),
				Resolution:  set["resolution"].(string),
				AfterImages: images,
				ResolvedAt:  &resolvedAt,
				ResolvedBy:  &by,
			}, nil
		})
	m.activity.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a *models.Activity) error {
			if a.Action != "Issue marked as resolved" || *a.IssueID != id || a.ActorID != actor.UserID {
				t.Errorf("activity = %+v", a)
			}
			return nil
		})
	m.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	issue, err := tr.SetStatus(context.Background(), actor, id, StatusUpdate{
		Status:     models.Resolved,
		Resolution: "Filled and resurfaced",
		AfterImage: &after,
	})
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if issue.Status != models.Resolved || len(issue.AfterImages) != 1 || issue.ResolvedAt == nil {
		t.Errorf("issue = %+v", issue)
	}
	if issue.Stage != models.StageResolved {
		t.Errorf("stage = %s", issue.Stage)
	}
}

func TestSetStatusResolveRequirements(t *testing.T) {
	after := &Image{Data: []byte("\x89PNG\r\n\x1a\nafter"), ContentType: "image/png"}
	tests := []struct {
		name string
		upd  StatusUpdate
	}{
		{"missing resolution", StatusUpdate{Status: models.Resolved, AfterImage: after}},
		{"missing after image", StatusUpdate{Status: models.Resolved, Resolution: "Filled"}},
		{"missing rejection reason", StatusUpdate{Status: models.Rejected, RejectionReason: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, m := newTriage(t)
			id := primitive.NewObjectID()
			m.issues.EXPECT().FindByID(gomock.Any(), id).
				Return(&models.Issue{ID: id, Status: models.InProgress}, nil)

			_, err := tr.SetStatus(context.Background(), admin(), id, tt.upd)
			wantCode(t, err, CodeInvalidInput)
		})
	}
}

func TestSetStatusTerminal(t *testing.T) {
	for _, from := range []models.IssueStatus{models.Resolved, models.Rejected} {
		for _, to := range []models.IssueStatus{models.Pending, models.InProgress, models.Resolved, models.Rejected} {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				tr, m := newTriage(t)
				id := primitive.NewObjectID()
				m.issues.EXPECT().FindByID(gomock.Any(), id).Return(&models.Issue{ID: id, Status: from}, nil)

				_, err := tr.SetStatus(context.Background(), admin(), id, StatusUpdate{
					Status:          to,
					Resolution:      "done",
					RejectionReason: "dup",
				})
				wantCode(t, err, CodeInvalidTransition)
			})
		}
	}
}

func TestSetStatusReject(t *testing.T) {
	tr, m := newTriage(t)
	id := primitive.NewObjectID()

	m.issues.EXPECT().FindByID(gomock.Any(), id).Return(&models.Issue{ID: id, Status: models.Pending}, nil)
	m.issues.EXPECT().Transition(gomock.Any(), id, models.Rejected, bson.M{"rejection_reason": "Duplicate report"}).
		Return(&models.Issue{ID: id, Status: models.Rejected, RejectionReason: "Duplicate report"}, nil)
	m.activity.EXPECT().Log(gomock.Any(), gomock.Any()).Return(nil)
	m.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	issue, err := tr.SetStatus(context.Background(), admin(), id, StatusUpdate{
		Status:          models.Rejected,
		RejectionReason: " Duplicate report ",
	})
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if issue.Status != models.Rejected {
		t.Errorf("status = %s", issue.Status)
	}
}

func TestSetStatusConcurrentChangeRemovesAfterImage(t *testing.T) {
	tr, m := newTriage(t)
	id := primitive.NewObjectID()
	after := Image{Data: []byte("\x89PNG\r\n\x1a\nafter"), ContentType: "image/png"}

	m.issues.EXPECT().FindByID(gomock.Any(), id).Return(&models.Issue{ID: id, Status: models.Pending}, nil)
	m.media.EXPECT().Store(gomock.Any(), storage.After, gomock.Any(), gomock.Any()).
		Return("http://media.test/media/after/1.png", nil)
	m.issues.EXPECT().Transition(gomock.Any(), id, models.Resolved, gomock.Any()).
		Return(nil, repository.ErrConflict)
	m.media.EXPECT().Delete(gomock.Any(), "http://media.test/media/after/1.png").Return(nil)

	_, err := tr.SetStatus(context.Background(), admin(), id, StatusUpdate{
		Status:     models.Resolved,
		Resolution: "Filled",
		AfterImage: &after,
	})
	wantCode(t, err, CodeInvalidTransition)
}

func TestTriageRequiresAdmin(t *testing.T) {
	tr, _ := newTriage(t)
	id := primitive.NewObjectID()

	_, err := tr.SetStatus(context.Background(), citizen(), id, StatusUpdate{Status: models.InProgress})
	se := wantCode(t, err, CodeForbidden)
	if se.Kind != AuthorizationFault {
		t.Errorf("kind = %s", se.Kind)
	}

	_, err = tr.Assign(context.Background(), nil, id, primitive.NewObjectID(), "")
	wantCode(t, err, CodeAuthRequired)

	_, err = tr.AdvanceStage(context.Background(), citizen(), id, models.StageVerification)
	wantCode(t, err, CodeForbidden)

	_, err = tr.RecentActivity(context.Background(), citizen(), 10)
	wantCode(t, err, CodeForbidden)
}

func TestAssign(t *testing.T) {
	tr, m := newTriage(t)
	id, workerID := primitive.NewObjectID(), primitive.NewObjectID()

	m.workers.EXPECT().FindByID(gomock.Any(), workerID).
		Return(&models.Worker{ID: workerID, Name: "Crew 7"}, nil)
	m.issues.EXPECT().Assign(gomock.Any(), id, workerID, "Bring cold mix").
		Return(&models.Issue{ID: id, Status: models.InProgress, AssignedTo: &workerID}, nil)
	m.activity.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a *models.Activity) error {
			if a.Action != "Issue assigned to Crew 7" {
				t.Errorf("action = %q", a.Action)
			}
			return nil
		})
	m.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	issue, err := tr.Assign(context.Background(), admin(), id, workerID, " Bring cold mix ")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if issue.Status != models.InProgress {
		t.Errorf("status = %s, want in-progress", issue.Status)
	}
}

func TestAssignUnknownWorker(t *testing.T) {
	tr, m := newTriage(t)
	m.workers.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, repository.ErrNotFound)

	_, err := tr.Assign(context.Background(), admin(), primitive.NewObjectID(), primitive.NewObjectID(), "")
	wantCode(t, err, CodeNotFound)
}

func TestAssignClosedIssue(t *testing.T) {
	tr, m := newTriage(t)
	workerID := primitive.NewObjectID()
	m.workers.EXPECT().FindByID(gomock.Any(), workerID).Return(&models.Worker{ID: workerID}, nil)
	m.issues.EXPECT().Assign(gomock.Any(), gomock.Any(), workerID, "").Return(nil, repository.ErrConflict)

	_, err := tr.Assign(context.Background(), admin(), primitive.NewObjectID(), workerID, "")
	wantCode(t, err, CodeInvalidTransition)
}

func TestAdvanceStage(t *testing.T) {
	tr, m := newTriage(t)
	id := primitive.NewObjectID()

	m.issues.EXPECT().AdvanceStage(gomock.Any(), id, models.StageVerification).
		Return(&models.Issue{ID: id, Status: models.Pending, Stage: models.StageVerification}, nil)
	m.activity.EXPECT().Log(gomock.Any(), gomock.Any()).Return(errors.New("activity down"))
	m.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	issue, err := tr.AdvanceStage(context.Background(), admin(), id, models.StageVerification)
	if err != nil {
		t.Fatalf("AdvanceStage: %v", err)
	}
	if label, pct := models.Progress(issue.Stage); label != "Verification" || pct != 75 {
		t.Errorf("progress = %s %d", label, pct)
	}
}

func TestAdvanceStageRejectsResolvedAndUnknown(t *testing.T) {
	tr, _ := newTriage(t)
	for _, stage := range []models.IssueStage{models.StageResolved, models.StageInitial, "done", ""} {
		_, err := tr.AdvanceStage(context.Background(), admin(), primitive.NewObjectID(), stage)
		wantCode(t, err, CodeInvalidInput)
	}
}

func TestAdvanceStageBackwards(t *testing.T) {
	tr, m := newTriage(t)
	m.issues.EXPECT().AdvanceStage(gomock.Any(), gomock.Any(), models.StageAIAnalysis).Return(nil, repository.ErrConflict)

	_, err := tr.AdvanceStage(context.Background(), admin(), primitive.NewObjectID(), models.StageAIAnalysis)
	wantCode(t, err, CodeInvalidTransition)
}
