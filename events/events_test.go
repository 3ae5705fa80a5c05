package events

import (
	"context"
	"testing"
	"time"
)

func TestHubDelivers(t *testing.T) {
	h := NewHub(4)
	a, cancelA := h.Subscribe()
	defer cancelA()
	b, cancelB := h.Subscribe()
	defer cancelB()

	ev := Event{Type: StatusChanged, IssueID: "abc", Status: "resolved", At: time.Now()}
	if err := h.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.IssueID != "abc" || got.Type != StatusChanged {
				t.Errorf("%s got %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s did not receive the event", name)
		}
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = h.Publish(context.Background(), Event{IssueID: "x"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if len(ch) != 1 {
		t.Errorf("buffered = %d, want 1", len(ch))
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}
	if err := h.Publish(context.Background(), Event{}); err != nil {
		t.Fatalf("Publish after cancel: %v", err)
	}
}

func TestDecode(t *testing.T) {
	ev := decode(map[string]interface{}{
		"type":     "issue.stage",
		"issue_id": "65f0",
		"status":   "pending",
		"stage":    "verification",
		"at":       "1700000000000",
	})
	if ev.Type != StageChanged || ev.IssueID != "65f0" || ev.Stage != "verification" {
		t.Errorf("decode = %+v", ev)
	}
	if ev.At.UnixMilli() != 1700000000000 {
		t.Errorf("At = %v", ev.At)
	}
}
