package ical

import (
	"bytes"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// =============================================================================
// WRITER - VCALENDAR generation
// =============================================================================

const (
	// DefaultProdID identifies the generator in exported files.
	DefaultProdID = "-//JotTick//Household Calendar//EN"

	maxLineOctets = 75
	crlf          = "\r\n"
)

// VEvent is an event ready to be written.
type VEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Categories  []string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// Writer serializes events into a single VCALENDAR.
type Writer struct {
	ProdID string
	Name   string
	Stamp  time.Time
}

// Encode returns the calendar as bytes.
func (w *Writer) Encode(events []VEvent) []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes don't fail.
	_ = w.Write(&buf, events)
	return buf.Bytes()
}

// Write emits the calendar with CRLF endings and 75-octet folding.
func (w *Writer) Write(out io.Writer, events []VEvent) error {
	prodID := w.ProdID
	if prodID == "" {
		prodID = DefaultProdID
	}
	stamp := w.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	lw := &lineWriter{w: out}
	lw.line("BEGIN:VCALENDAR")
	lw.line("VERSION:2.0")
	lw.line("PRODID:" + prodID)
	lw.line("CALSCALE:GREGORIAN")
	lw.line("METHOD:PUBLISH")
	if w.Name != "" {
		lw.line("X-WR-CALNAME:" + Escape(w.Name))
	}
	for _, ev := range events {
		lw.line("BEGIN:VEVENT")
		lw.line("UID:" + ev.UID)
		lw.line("DTSTAMP:" + formatUTC(stamp))
		if ev.AllDay {
			lw.line("DTSTART;VALUE=DATE:" + ev.Start.Format("20060102"))
			end := ev.End
			if !end.After(ev.Start) {
				end = ev.Start.AddDate(0, 0, 1)
			}
			lw.line("DTEND;VALUE=DATE:" + end.Format("20060102"))
		} else {
			lw.line("DTSTART:" + formatUTC(ev.Start))
			if ev.End.After(ev.Start) {
				lw.line("DTEND:" + formatUTC(ev.End))
			}
		}
		lw.line("SUMMARY:" + Escape(ev.Summary))
		if ev.Description != "" {
			lw.line("DESCRIPTION:" + Escape(ev.Description))
		}
		if ev.Location != "" {
			lw.line("LOCATION:" + Escape(ev.Location))
		}
		if len(ev.Categories) > 0 {
			parts := make([]string, len(ev.Categories))
			for i, c := range ev.Categories {
				parts[i] = Escape(c)
			}
			lw.line("CATEGORIES:" + strings.Join(parts, ","))
		}
		lw.line("END:VEVENT")
	}
	lw.line("END:VCALENDAR")
	return lw.err
}

func formatUTC(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// lineWriter folds and terminates content lines, remembering the first error.
type lineWriter struct {
	w   io.Writer
	err error
}

func (lw *lineWriter) line(s string) {
	if lw.err != nil {
		return
	}
	_, lw.err = io.WriteString(lw.w, Fold(s))
}

// Fold splits a content line into chunks of at most 75 octets, never
// inside a UTF-8 sequence. Continuation lines start with one space, which
// counts toward their 75. The result ends in CRLF.
func Fold(s string) string {
	if len(s) <= maxLineOctets {
		return s + crlf
	}
	var b strings.Builder
	limit := maxLineOctets
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			// No rune start in reach: the bytes are not UTF-8 anyway.
			cut = limit
		}
		b.WriteString(s[:cut])
		b.WriteString(crlf + " ")
		s = s[cut:]
		limit = maxLineOctets - 1
	}
	b.WriteString(s)
	b.WriteString(crlf)
	return b.String()
}
