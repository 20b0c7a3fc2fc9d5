// Package notify delivers coordinator events outside the process.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/warp/jottick/generic"
)

// =============================================================================
// FANOUT
// =============================================================================

// Fanout delivers every event to all notifiers, even when some fail.
type Fanout []generic.Notifier

func (f Fanout) Notify(ctx context.Context, ev generic.Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// LOG
// =============================================================================

// LogNotifier writes one line per event.
type LogNotifier struct {
	Logger *log.Logger // nil means the standard logger
}

func (l LogNotifier) Notify(_ context.Context, ev generic.Event) error {
	msg := fmt.Sprintf("[Notify] %s %v", ev.Type, ev.Data)
	if l.Logger != nil {
		l.Logger.Println(msg)
		return nil
	}
	log.Println(msg)
	return nil
}

// =============================================================================
// REDIS
// =============================================================================

const (
	DefaultChannel = "jottick:events"

	// recentLimit bounds the "<channel>:recent" replay list.
	recentLimit = 100
)

// RedisNotifier publishes events as JSON on a channel and keeps the most
// recent ones in a list so late subscribers can catch up.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier connects to redisURL (redis://host:port/db) and checks
// the connection.
func NewRedisNotifier(redisURL, channel string) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisNotifierWithClient(client, channel), nil
}

// NewRedisNotifierWithClient wraps an existing client.
func NewRedisNotifierWithClient(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

func (r *RedisNotifier) Channel() string { return r.channel }

// RecentKey is the list holding the latest events, newest first.
func (r *RedisNotifier) RecentKey() string { return r.channel + ":recent" }

func (r *RedisNotifier) Notify(ctx context.Context, ev generic.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pipe := r.client.Pipeline()
	pipe.Publish(ctx, r.channel, payload)
	pipe.LPush(ctx, r.RecentKey(), payload)
	pipe.LTrim(ctx, r.RecentKey(), 0, recentLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Recent returns up to n of the latest events, newest first.
func (r *RedisNotifier) Recent(ctx context.Context, n int) ([]generic.Event, error) {
	if n <= 0 || n > recentLimit {
		n = recentLimit
	}
	raw, err := r.client.LRange(ctx, r.RecentKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent events: %w", err)
	}
	out := make([]generic.Event, 0, len(raw))
	for _, s := range raw {
		var ev generic.Event
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (r *RedisNotifier) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisNotifier) Close() error {
	return r.client.Close()
}
