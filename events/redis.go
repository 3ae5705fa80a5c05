package events

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const streamIssues = "urbanconnect.issues"

// streamClient is the part of *redis.Client the stream uses.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRead(ctx context.Context, a *redis.XReadArgs) *redis.XStreamSliceCmd
}

// RedisStream appends events to a Redis stream so that every API instance,
// not only the one that committed the change, can notify its subscribers.
type RedisStream struct {
	rdb    streamClient
	stream string
	maxLen int64
	block  time.Duration
	retry  time.Duration
}

func NewRedisStream(rdb *redis.Client) *RedisStream {
	return &RedisStream{rdb: rdb, stream: streamIssues, maxLen: 10000, block: 5 * time.Second, retry: time.Second}
}

func (r *RedisStream) Publish(ctx context.Context, ev Event) error {
	return r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":     string(ev.Type),
			"issue_id": ev.IssueID,
			"user_id":  ev.UserID,
			"status":   ev.Status,
			"stage":    ev.Stage,
			"at":       ev.At.UnixMilli(),
		},
	}).Err()
}

// Relay tails the stream from its current end and republishes each entry
// to dst until ctx is done.
func (r *RedisStream) Relay(ctx context.Context, dst Publisher) {
	last := "$"
	for {
		res, err := r.rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{r.stream, last},
			Block:   r.block,
			Count:   100,
		}).Result()
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			slog.Warn("issue stream read failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.retry):
			}
			continue
		}
		for _, stream := range res {
			for _, msg := range stream.Messages {
				last = msg.ID
				_ = dst.Publish(ctx, decode(msg.Values))
			}
		}
	}
}

func decode(values map[string]interface{}) Event {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}
	ev := Event{
		Type:    Type(str("type")),
		IssueID: str("issue_id"),
		UserID:  str("user_id"),
		Status:  str("status"),
		Stage:   str("stage"),
	}
	if ms, err := strconv.ParseInt(str("at"), 10, 64); err == nil {
		ev.At = time.UnixMilli(ms)
	}
	return ev
}
