package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	Pothole     IssueCategory = "pothole"
	Roads       IssueCategory = "roads"
	Water       IssueCategory = "water"
	Electricity IssueCategory = "electricity"
	Garbage     IssueCategory = "garbage"
	Other       IssueCategory = "other"
)

var validCategories = map[IssueCategory]bool{
	Pothole: true, Roads: true, Water: true,
	Electricity: true, Garbage: true, Other: true,
}

// Valid reports whether c is one of the accepted categories.
func (c IssueCategory) Valid() bool {
	return validCategories[c]
}

// IssuePriority enum
type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
)

// ParsePriority maps an empty value to medium and rejects anything outside
// low/medium/high.
func ParsePriority(s string) (IssuePriority, bool) {
	switch IssuePriority(s) {
	case "":
		return PriorityMedium, true
	case PriorityLow, PriorityMedium, PriorityHigh:
		return IssuePriority(s), true
	}
	return "", false
}

// IssueStatus enum
type IssueStatus string

const (
	Pending    IssueStatus = "pending"
	InProgress IssueStatus = "in-progress"
	Resolved   IssueStatus = "resolved"
	Rejected   IssueStatus = "rejected"
)

// transitions lists the allowed edges of the status machine. Resolved and
// rejected have no outgoing edges.
var transitions = map[IssueStatus][]IssueStatus{
	Pending:    {InProgress, Resolved, Rejected},
	InProgress: {Resolved, Rejected},
}

// Valid reports whether s is a known status.
func (s IssueStatus) Valid() bool {
	switch s {
	case Pending, InProgress, Resolved, Rejected:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s IssueStatus) Terminal() bool {
	return s == Resolved || s == Rejected
}

// CanTransition reports whether from → to is an edge of the status machine.
func CanTransition(from, to IssueStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesOf returns every status that may move to target.
func SourcesOf(target IssueStatus) []IssueStatus {
	var from []IssueStatus
	for _, s := range []IssueStatus{Pending, InProgress} {
		if CanTransition(s, target) {
			from = append(from, s)
		}
	}
	return from
}

// ResolvedBy is a snapshot of the operator who closed an issue.
type ResolvedBy struct {
	ID         primitive.ObjectID `bson:"id" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Department string             `bson:"department" json:"department"`
}

// Feedback is the reporting citizen's rating of a resolution.
type Feedback struct {
	Rating      int       `bson:"rating" json:"rating"`
	Comment     string    `bson:"comment,omitempty" json:"comment,omitempty"`
	SubmittedAt time.Time `bson:"submitted_at" json:"submitted_at"`
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title           string              `bson:"title" json:"title"`
	Description     string              `bson:"description" json:"description"`
	Category        IssueCategory       `bson:"category" json:"category"`
	Priority        IssuePriority       `bson:"priority" json:"priority"`
	Location        string              `bson:"location" json:"location"`
	BeforeImages    []string            `bson:"before_images" json:"before_images"`
	AfterImages     []string            `bson:"after_images,omitempty" json:"after_images,omitempty"`
	Status          IssueStatus         `bson:"status" json:"status"`
	Stage           IssueStage          `bson:"stage" json:"stage"`
	Resolution      string              `bson:"resolution,omitempty" json:"resolution,omitempty"`
	ResolvedBy      *ResolvedBy         `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	AssignedTo      *primitive.ObjectID `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	Instructions    string              `bson:"instructions,omitempty" json:"instructions,omitempty"`
	UserID          primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Feedback        *Feedback           `bson:"feedback,omitempty" json:"feedback,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
	ResolvedAt      *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// IssueView is an Issue decorated with derived, never-stored fields.
type IssueView struct {
	Issue
	StageLabel    string `json:"stage_label"`
	StageProgress int    `json:"stage_progress"`
	Votes         int64  `json:"votes"`
	UserHasVoted  bool   `json:"user_has_voted"`
}

// View derives the display fields for i.
func (i Issue) View() IssueView {
	label, percent := Progress(i.Stage)
	return IssueView{Issue: i, StageLabel: label, StageProgress: percent}
}
