package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/warp/jottick/generic"
	"github.com/warp/jottick/ical"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// ICAL IMPORT
// =============================================================================
// Fetching happens outside the lock and before any mutation, so a slow or
// failing feed never blocks other writers or leaves a half-imported source.

// ImportICal subscribes to a calendar feed and stores its events.
func (c *Coordinator) ImportICal(ctx context.Context, url, name string) (generic.ICalSource, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return generic.ICalSource{}, generic.Invalid("url", "must not be empty")
	}
	if c.hasSource(url) {
		return generic.ICalSource{}, fmt.Errorf("%w: %s", generic.ErrDuplicateSource, url)
	}

	text, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return generic.ICalSource{}, err
	}

	src := generic.ICalSource{
		ID:      c.newID(),
		URL:     url,
		Name:    strings.TrimSpace(name),
		AddedAt: c.timestamp(),
	}
	if src.Name == "" {
		src.Name = "Imported Calendar"
	}
	src.LastRefreshed = src.AddedAt
	events := c.parser.Import(text, src)
	src.EventCount = len(events)

	err = c.update(ctx, func(doc *generic.Document, ch *change) error {
		if _, dup := doc.FindSource(url); dup != nil {
			return fmt.Errorf("%w: %s", generic.ErrDuplicateSource, url)
		}
		doc.ICalSources = append(doc.ICalSources, src)
		doc.ImportedEvents = append(doc.ImportedEvents, events...)
		emitRefreshed(ch, src)
		return nil
	})
	if err != nil {
		return generic.ICalSource{}, err
	}
	log.Printf("[Coordinator] Imported %d events from %s", src.EventCount, src.Name)
	return src, nil
}

// RefreshICal refetches one source and replaces all of its events.
func (c *Coordinator) RefreshICal(ctx context.Context, url string) (generic.ICalSource, error) {
	src, ok := c.source(url)
	if !ok {
		return generic.ICalSource{}, fmt.Errorf("%w: %s", generic.ErrSourceNotFound, url)
	}
	text, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return generic.ICalSource{}, err
	}

	var out generic.ICalSource
	err = c.update(ctx, func(doc *generic.Document, ch *change) error {
		s, err := c.replaceEvents(doc, src, text)
		if err != nil {
			return err
		}
		out = s
		emitRefreshed(ch, s)
		return nil
	})
	return out, err
}

// RefreshAllICal refreshes every source, best effort. Feeds are fetched
// concurrently; the successful ones are applied in a single save. Failures
// come back joined.
func (c *Coordinator) RefreshAllICal(ctx context.Context) error {
	var sources []generic.ICalSource
	c.read(func(doc *generic.Document) {
		sources = slices.Clone(doc.ICalSources)
	})
	if len(sources) == 0 {
		return nil
	}

	texts := make([]string, len(sources))
	errs := make([]error, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.refreshWorkers, 1))
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			text, err := c.fetcher.Fetch(gctx, src.URL)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.URL, err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	refreshed := 0
	err := c.update(ctx, func(doc *generic.Document, ch *change) error {
		for i, src := range sources {
			if errs[i] != nil {
				continue
			}
			s, err := c.replaceEvents(doc, src, texts[i])
			if err != nil {
				// Removed while we were fetching.
				continue
			}
			refreshed++
			emitRefreshed(ch, s)
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	log.Printf("[Coordinator] Refreshed %d of %d calendars", refreshed, len(sources))
	return errors.Join(errs...)
}

// RemoveICalSource drops a source and every event imported from it.
func (c *Coordinator) RemoveICalSource(ctx context.Context, url string) error {
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		i, src := doc.FindSource(url)
		if src == nil {
			return fmt.Errorf("%w: %s", generic.ErrSourceNotFound, url)
		}
		doc.ICalSources = slices.Delete(doc.ICalSources, i, i+1)
		doc.ImportedEvents = slices.DeleteFunc(doc.ImportedEvents, func(e generic.ImportedEvent) bool {
			return e.SourceURL == url
		})
		return nil
	})
}

// ICalSources lists the subscribed feeds.
func (c *Coordinator) ICalSources() []generic.ICalSource {
	var out []generic.ICalSource
	c.read(func(doc *generic.Document) {
		out = slices.Clone(doc.ICalSources)
	})
	return out
}

func (c *Coordinator) replaceEvents(doc *generic.Document, src generic.ICalSource, text string) (generic.ICalSource, error) {
	_, live := doc.FindSource(src.URL)
	if live == nil {
		return generic.ICalSource{}, fmt.Errorf("%w: %s", generic.ErrSourceNotFound, src.URL)
	}
	events := c.parser.Import(text, *live)
	doc.ImportedEvents = slices.DeleteFunc(doc.ImportedEvents, func(e generic.ImportedEvent) bool {
		return e.SourceURL == src.URL
	})
	doc.ImportedEvents = append(doc.ImportedEvents, events...)
	live.EventCount = len(events)
	live.LastRefreshed = c.timestamp()
	return *live, nil
}

func (c *Coordinator) hasSource(url string) bool {
	_, ok := c.source(url)
	return ok
}

func (c *Coordinator) source(url string) (generic.ICalSource, bool) {
	var (
		out generic.ICalSource
		ok  bool
	)
	c.read(func(doc *generic.Document) {
		if _, s := doc.FindSource(url); s != nil {
			out, ok = *s, true
		}
	})
	return out, ok
}

func emitRefreshed(ch *change, src generic.ICalSource) {
	ch.emit(generic.EventICalRefreshed, map[string]any{
		"source_id":   src.ID,
		"url":         src.URL,
		"name":        src.Name,
		"event_count": src.EventCount,
	})
}

// =============================================================================
// ICAL EXPORT
// =============================================================================

// ExportResult reports where the calendar went.
type ExportResult struct {
	Path       string `json:"path"`
	EventCount int    `json:"event_count"`
}

// ExportICal writes every synthetic event plus the given reminders to the
// configured export path, replacing the file atomically.
func (c *Coordinator) ExportICal(ctx context.Context, reminders []generic.Reminder) (ExportResult, error) {
	if c.exportPath == "" {
		return ExportResult{}, generic.Invalid("export_path", "not configured")
	}
	body, n := c.EncodeICal(reminders)
	if err := atomic.WriteFile(c.exportPath, bytes.NewReader(body)); err != nil {
		return ExportResult{}, fmt.Errorf("write %s: %w", c.exportPath, err)
	}
	res := ExportResult{Path: c.exportPath, EventCount: n}
	c.notify(ctx, generic.Event{Type: generic.EventICalExported, Data: map[string]any{
		"path":        res.Path,
		"event_count": res.EventCount,
	}})
	log.Printf("[Coordinator] Exported %d events to %s", n, res.Path)
	return res, nil
}

// EncodeICal renders the calendar without writing it anywhere.
func (c *Coordinator) EncodeICal(reminders []generic.Reminder) ([]byte, int) {
	var events []ical.VEvent
	c.read(func(doc *generic.Document) {
		events = ical.ExportEvents(doc, c.Location(), reminders)
	})
	w := ical.Writer{Name: "JotTick", Stamp: c.now()}
	return w.Encode(events), len(events)
}
