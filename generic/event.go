package generic

import (
	"context"
	"time"
)

// =============================================================================
// EVENTS - Change notifications fired after a successful save
// =============================================================================

type EventType string

const (
	EventUpdated            EventType = "jottick_updated"
	EventPointsChanged      EventType = "jottick_points_changed"
	EventPointsClaimed      EventType = "jottick_points_claimed"
	EventAchievementAwarded EventType = "jottick_achievement_awarded"
	EventICalRefreshed      EventType = "jottick_ical_refreshed"
	EventICalExported       EventType = "jottick_ical_exported"
)

// Event is what observers receive. Data is small and JSON-friendly.
type Event struct {
	Type EventType      `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	At   time.Time      `json:"at"`
}

// Notifier delivers events outside the process (or to a log).
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }
