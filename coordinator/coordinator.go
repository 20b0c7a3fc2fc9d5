/*
Package coordinator owns the household document and is its only writer.

PURPOSE:
  Every mutation (notes, checklists, tasks, points, iCal) runs through one
  Coordinator so that changes are serialized, persisted, and announced in
  a single place.

CRITICAL INVARIANTS:
  1. ATOMIC: A failed operation leaves no trace. The document is
     snapshotted before each mutation and restored on any error,
     including a failed save.
  2. SAVE-THEN-NOTIFY: Listeners and the notifier only ever see state that
     reached the store.
  3. COPY-OUT: Data() and listener payloads are deep copies. Callers can
     never mutate the live document.

UPDATE CYCLE:
  lock -> snapshot -> fn(doc) -> save -> unlock -> listeners -> notifier

  fn may queue extra events (points changed, achievement awarded); they are
  delivered after the generic "updated" event.

SEE ALSO:
  - generic/store.go: Store contract
  - rewards/: Points rules applied inside the cycle
  - ical/: Parsing and export used by the iCal operations
*/
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/jottick/generic"
	"github.com/warp/jottick/ical"
	"github.com/warp/jottick/rewards"
)

// ErrNotLoaded is returned by mutations issued before Load.
var ErrNotLoaded = errors.New("coordinator: document not loaded")

// Listener receives a copy of the document after every successful save.
type Listener func(doc *generic.Document)

// Coordinator serializes access to the document.
type Coordinator struct {
	mu  sync.Mutex
	doc *generic.Document

	store    generic.Store
	notifier generic.Notifier
	ledger   *rewards.Ledger
	now      generic.Clock
	newID    func() string

	fetcher        ical.Fetcher
	parser         ical.Parser
	exportPath     string
	refreshWorkers int

	listenerMu   sync.Mutex
	listeners    map[int]Listener
	nextListener int

	remindersMu sync.RWMutex
	reminders   []generic.Reminder
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithNotifier(n generic.Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

func WithClock(clock generic.Clock) Option {
	return func(c *Coordinator) { c.now = clock }
}

// WithIDs replaces the UUID generator (tests use counters).
func WithIDs(fn func() string) Option {
	return func(c *Coordinator) { c.newID = fn }
}

func WithFetcher(f ical.Fetcher) Option {
	return func(c *Coordinator) { c.fetcher = f }
}

// WithParser sets the zone and expansion limits for imported calendars.
func WithParser(p ical.Parser) Option {
	return func(c *Coordinator) { c.parser = p }
}

func WithExportPath(path string) Option {
	return func(c *Coordinator) { c.exportPath = path }
}

// WithRefreshWorkers bounds concurrent fetches in RefreshAllICal.
func WithRefreshWorkers(n int) Option {
	return func(c *Coordinator) { c.refreshWorkers = n }
}

// New builds a Coordinator over store. Call Load before mutating.
func New(store generic.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:          store,
		notifier:       generic.NopNotifier{},
		now:            generic.SystemClock,
		newID:          uuid.NewString,
		fetcher:        ical.NewHTTPFetcher(ical.DefaultFetchTimeout),
		refreshWorkers: 4,
		listeners:      make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ledger = &rewards.Ledger{Now: c.now, NewID: c.newID}
	return c
}

// Load reads the document from the store. An empty store is seeded with
// an empty document, which is persisted immediately.
func (c *Coordinator) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		doc = generic.NewDocument()
		if err := c.store.Save(ctx, doc); err != nil {
			return fmt.Errorf("seed document: %w", err)
		}
		log.Println("[Coordinator] Seeded empty document")
	}
	doc.Normalize()
	c.doc = doc
	log.Printf("[Coordinator] Loaded %d notes, %d checklists, %d tasks, %d users",
		len(doc.Notes), len(doc.Checklists), len(doc.Tasks), len(doc.PointsUsers))
	return nil
}

// Data returns a deep copy of the current document (nil before Load).
func (c *Coordinator) Data() *generic.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return nil
	}
	return c.doc.Clone()
}

// read runs fn against the live document under the lock. fn must not
// retain or mutate doc.
func (c *Coordinator) read(fn func(doc *generic.Document)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		fn(generic.NewDocument())
		return
	}
	fn(c.doc)
}

// AddListener registers fn and returns a function that removes it.
func (c *Coordinator) AddListener(fn Listener) (remove func()) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	return func() {
		c.listenerMu.Lock()
		defer c.listenerMu.Unlock()
		delete(c.listeners, id)
	}
}

// =============================================================================
// REMINDERS - held in memory, never persisted
// =============================================================================

// SetReminders replaces the externally scheduled note reminders.
func (c *Coordinator) SetReminders(rs []generic.Reminder) {
	c.remindersMu.Lock()
	defer c.remindersMu.Unlock()
	c.reminders = append([]generic.Reminder(nil), rs...)
}

func (c *Coordinator) Reminders() []generic.Reminder {
	c.remindersMu.RLock()
	defer c.remindersMu.RUnlock()
	return append([]generic.Reminder(nil), c.reminders...)
}

// =============================================================================
// UPDATE CYCLE
// =============================================================================

// change collects the extra events an operation wants delivered.
type change struct {
	events []generic.Event
}

func (ch *change) emit(t generic.EventType, data map[string]any) {
	ch.events = append(ch.events, generic.Event{Type: t, Data: data})
}

func (c *Coordinator) update(ctx context.Context, fn func(doc *generic.Document, ch *change) error) error {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNotLoaded
	}

	snapshot := c.doc.Clone()
	ch := &change{}
	if err := fn(c.doc, ch); err != nil {
		c.doc = snapshot
		c.mu.Unlock()
		return err
	}
	if err := c.store.Save(ctx, c.doc); err != nil {
		c.doc = snapshot
		c.mu.Unlock()
		log.Printf("[Coordinator] Save failed, changes rolled back: %v", err)
		return fmt.Errorf("save document: %w", err)
	}
	published := c.doc.Clone()
	c.mu.Unlock()

	c.publish(ctx, published, ch.events)
	return nil
}

func (c *Coordinator) publish(ctx context.Context, doc *generic.Document, extra []generic.Event) {
	c.listenerMu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenerMu.Unlock()

	for _, l := range listeners {
		l(doc)
	}

	at := c.now()
	c.notify(ctx, generic.Event{Type: generic.EventUpdated, At: at})
	for _, ev := range extra {
		ev.At = at
		c.notify(ctx, ev)
	}
}

func (c *Coordinator) notify(ctx context.Context, ev generic.Event) {
	if ev.At.IsZero() {
		ev.At = c.now()
	}
	if err := c.notifier.Notify(ctx, ev); err != nil {
		log.Printf("[Coordinator] Notify %s failed: %v", ev.Type, err)
	}
}

func (c *Coordinator) timestamp() string {
	return generic.FormatTimestamp(c.now())
}

// Close closes the underlying store.
func (c *Coordinator) Close() error {
	return c.store.Close()
}

// Location is the zone imported and exported calendars are rendered in.
func (c *Coordinator) Location() *time.Location {
	if c.parser.Location == nil {
		return time.Local
	}
	return c.parser.Location
}
