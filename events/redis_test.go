package events

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeStream scripts XRead replies and records every call. Once the script
// runs out XRead blocks until the context ends.
type fakeStream struct {
	mu      sync.Mutex
	added   []*redis.XAddArgs
	reads   [][]string
	replies []*redis.XStreamSliceCmd
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, a)
	return redis.NewStringResult("1-0", nil)
}

func (f *fakeStream) XRead(ctx context.Context, a *redis.XReadArgs) *redis.XStreamSliceCmd {
	f.mu.Lock()
	f.reads = append(f.reads, append([]string(nil), a.Streams...))
	if len(f.replies) > 0 {
		reply := f.replies[0]
		f.replies = f.replies[1:]
		f.mu.Unlock()
		return reply
	}
	f.mu.Unlock()
	<-ctx.Done()
	return redis.NewXStreamSliceCmdResult(nil, ctx.Err())
}

type recorder struct {
	mu  sync.Mutex
	got []Event
}

func (r *recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
	return nil
}

func (r *recorder) events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.got...)
}

func message(id string, ev Event) redis.XMessage {
	return redis.XMessage{ID: id, Values: map[string]interface{}{
		"type":     string(ev.Type),
		"issue_id": ev.IssueID,
		"user_id":  ev.UserID,
		"status":   ev.Status,
		"stage":    ev.Stage,
		"at":       strconv.FormatInt(ev.At.UnixMilli(), 10),
	}}
}

func TestRedisStreamPublish(t *testing.T) {
	fake := &fakeStream{}
	s := &RedisStream{rdb: fake, stream: streamIssues, maxLen: 50}

	at := time.UnixMilli(1700000000000)
	err := s.Publish(context.Background(), Event{Type: IssueCreated, IssueID: "i1", UserID: "u1", Status: "pending", Stage: "initial", At: at})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(fake.added) != 1 {
		t.Fatalf("XAdd calls = %d", len(fake.added))
	}
	args := fake.added[0]
	if args.Stream != streamIssues || args.MaxLen != 50 || !args.Approx {
		t.Errorf("args = %+v", args)
	}
	values := args.Values.(map[string]interface{})
	if values["type"] != "issue.created" || values["issue_id"] != "i1" || values["at"] != at.UnixMilli() {
		t.Errorf("values = %v", values)
	}
}

func TestRedisStreamRelay(t *testing.T) {
	first := Event{Type: StatusChanged, IssueID: "i1", Status: "resolved", Stage: "resolved", At: time.UnixMilli(1700000000000)}
	second := Event{Type: StageChanged, IssueID: "i2", Status: "pending", Stage: "verification", At: time.UnixMilli(1700000001000)}
	fake := &fakeStream{replies: []*redis.XStreamSliceCmd{
		redis.NewXStreamSliceCmdResult(nil, redis.Nil),
		redis.NewXStreamSliceCmdResult(nil, errors.New("connection reset")),
		redis.NewXStreamSliceCmdResult([]redis.XStream{{
			Stream:   streamIssues,
			Messages: []redis.XMessage{message("5-0", first), message("6-0", second)},
		}}, nil),
	}}
	s := &RedisStream{rdb: fake, stream: streamIssues, block: time.Millisecond, retry: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	dst := &recorder{}
	done := make(chan struct{})
	go func() {
		s.Relay(ctx, dst)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(dst.events()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("relayed %d events, want 2", len(dst.events()))
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Relay did not stop after cancel")
	}

	got := dst.events()
	if got[0].IssueID != "i1" || got[0].Type != StatusChanged || got[1].Stage != "verification" {
		t.Errorf("relayed %+v", got)
	}
	if !got[1].At.Equal(second.At) {
		t.Errorf("At = %v, want %v", got[1].At, second.At)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.reads) < 4 {
		t.Fatalf("XRead calls = %d, want at least 4", len(fake.reads))
	}
	if fake.reads[0][1] != "$" {
		t.Errorf("first read starts at %q, want $", fake.reads[0][1])
	}
	if last := fake.reads[3][1]; last != "6-0" {
		t.Errorf("read after delivery starts at %q, want 6-0", last)
	}
}
