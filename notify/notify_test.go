package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/jottick/generic"
)

type failing struct{ err error }

func (f failing) Notify(context.Context, generic.Event) error { return f.err }

type counting struct{ n int }

func (c *counting) Notify(context.Context, generic.Event) error { c.n++; return nil }

func testEvent() generic.Event {
	return generic.Event{
		Type: generic.EventPointsChanged,
		Data: map[string]any{"user_id": "kid", "amount": 5},
		At:   time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	c := &counting{}

	err := Fanout{failing{boom}, c, failing{boom}}.Notify(context.Background(), testEvent())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, c.n)
	assert.NoError(t, Fanout{}.Notify(context.Background(), testEvent()))
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := LogNotifier{Logger: log.New(&buf, "", 0)}

	require.NoError(t, l.Notify(context.Background(), testEvent()))

	assert.Contains(t, buf.String(), "[Notify] jottick_points_changed")
	assert.Contains(t, buf.String(), "user_id:kid")
}

func TestNewRedisNotifier_BadURL(t *testing.T) {
	_, err := NewRedisNotifier("not-a-url", "")
	assert.Error(t, err)
}

func TestRedisNotifier_PublishesAndKeepsRecent(t *testing.T) {
	s := miniredis.RunT(t)
	n, err := NewRedisNotifier("redis://"+s.Addr(), "")
	require.NoError(t, err)
	defer n.Close()
	assert.Equal(t, DefaultChannel, n.Channel())

	ctx := context.Background()
	sub := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer sub.Close()
	ps := sub.Subscribe(ctx, n.Channel())
	defer ps.Close()
	_, err = ps.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	// WHEN
	require.NoError(t, n.Notify(ctx, testEvent()))

	// THEN: Subscribers get the JSON event
	msg, err := ps.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got generic.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, generic.EventPointsChanged, got.Type)
	assert.Equal(t, "kid", got.Data["user_id"])

	// AND: It is replayable
	recent, err := n.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].At.Equal(testEvent().At))
}

func TestRedisNotifier_RecentIsCapped(t *testing.T) {
	s := miniredis.RunT(t)
	n := NewRedisNotifierWithClient(redis.NewClient(&redis.Options{Addr: s.Addr()}), "house")
	defer n.Close()
	ctx := context.Background()

	for i := 0; i < recentLimit+5; i++ {
		ev := testEvent()
		ev.Data = map[string]any{"i": i}
		require.NoError(t, n.Notify(ctx, ev))
	}

	recent, err := n.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, recentLimit)
	// Newest first; JSON numbers decode as float64.
	assert.Equal(t, float64(recentLimit+4), recent[0].Data["i"])
	assert.Equal(t, "house:recent", n.RecentKey())
}
