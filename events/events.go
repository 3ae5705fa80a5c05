// Package events carries committed issue changes to dashboard subscribers.
package events

import (
	"context"
	"sync"
	"time"
)

type Type string

const (
	IssueCreated  Type = "issue.created"
	StatusChanged Type = "issue.status"
	StageChanged  Type = "issue.stage"
	IssueAssigned Type = "issue.assigned"
	FeedbackAdded Type = "issue.feedback"
)

// Event describes one committed mutation of an issue.
type Event struct {
	Type    Type      `json:"type"`
	IssueID string    `json:"issue_id"`
	UserID  string    `json:"user_id,omitempty"`
	Status  string    `json:"status"`
	Stage   string    `json:"stage"`
	At      time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Hub fans events out to in-process subscribers. A subscriber that falls
// behind by more than its buffer loses events rather than blocking
// publishers; dashboards recover by re-fetching.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[chan Event]struct{}), buffer: buffer}
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber and returns its channel and a cancel
// function that unregisters and closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}
