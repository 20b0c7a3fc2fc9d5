/*
Package ical reads and writes the subset of RFC 5545 a household calendar
needs: VEVENT blocks with dates, times, durations, categories, and simple
recurrence rules.

PURPOSE:
  Import turns a remote .ics feed into concrete ImportedEvent occurrences.
  Export turns the document's notes, lists, tasks, and due dates into a
  flat .ics file other calendar apps can subscribe to.

BEST EFFORT:
  This is a scraper, not a validator. The rules are:
  - Unknown properties and components are ignored
  - A property whose value cannot be parsed is dropped
  - A VEVENT without a usable DTSTART is discarded
  - Nothing here returns an error for malformed calendar text

LAYERS:
  lex.go:    Unfolding, block splitting, property lines, text escaping
  parse.go:  VEVENT -> occurrences, time zone handling
  rrule.go:  RRULE expansion (DAILY/WEEKLY/MONTHLY/YEARLY)
  writer.go: VCALENDAR generation, line folding
  export.go: Document -> VEVENTs
  fetch.go:  HTTP(S)/webcal retrieval

SEE ALSO:
  - coordinator/ical.go: Import, refresh, export operations
*/
package ical

import (
	"strings"
)

// =============================================================================
// CONTENT LINES
// =============================================================================

// Unfold joins continuation lines (those starting with a space or tab) onto
// the previous line and returns the logical lines. Both CRLF and bare LF
// input are accepted.
func Unfold(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if raw == "" {
			continue
		}
		if (raw[0] == ' ' || raw[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += raw[1:]
			continue
		}
		lines = append(lines, raw)
	}
	return lines
}

// SplitEvents returns the property lines of every VEVENT block. Nested
// components (VALARM) are skipped so their properties cannot overwrite the
// event's own.
func SplitEvents(lines []string) [][]string {
	var (
		blocks  [][]string
		current []string
		inEvent bool
		nested  int
	)
	for _, line := range lines {
		upper := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case upper == "BEGIN:VEVENT":
			inEvent = true
			nested = 0
			current = nil
		case upper == "END:VEVENT":
			if inEvent {
				blocks = append(blocks, current)
			}
			inEvent = false
		case !inEvent:
		case strings.HasPrefix(upper, "BEGIN:"):
			nested++
		case strings.HasPrefix(upper, "END:"):
			if nested > 0 {
				nested--
			}
		case nested == 0:
			current = append(current, line)
		}
	}
	return blocks
}

// Property is one parsed content line: NAME;PARAM=VALUE:value.
type Property struct {
	Name   string
	Params map[string]string
	Value  string
}

// Param returns a parameter value (names are case-insensitive).
func (p Property) Param(name string) string {
	return p.Params[strings.ToUpper(name)]
}

// ParseProperty splits a content line. Colons inside quoted parameter
// values do not end the name part. Lines without a colon are rejected.
func ParseProperty(line string) (Property, bool) {
	inQuote := false
	colon := -1
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '"' {
			inQuote = !inQuote
		} else if c == ':' && !inQuote {
			colon = i
			break
		}
	}
	if colon <= 0 {
		return Property{}, false
	}

	head := line[:colon]
	prop := Property{Value: line[colon+1:], Params: map[string]string{}}
	parts := splitUnquoted(head, ';')
	prop.Name = strings.ToUpper(strings.TrimSpace(parts[0]))
	for _, part := range parts[1:] {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		prop.Params[strings.ToUpper(strings.TrimSpace(k))] = strings.Trim(v, `"`)
	}
	return prop, prop.Name != ""
}

func splitUnquoted(s string, sep byte) []string {
	var (
		out     []string
		start   int
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case sep:
			if !inQuote {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// =============================================================================
// TEXT VALUES
// =============================================================================

// Unescape decodes a TEXT value: \\ \; \, \n \N.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Escape encodes a TEXT value for writing.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case ';':
			b.WriteString(`\;`)
		case ',':
			b.WriteString(`\,`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitList splits a multi-valued TEXT property on unescaped commas and
// unescapes each part. Empty parts are dropped.
func SplitList(s string) []string {
	var (
		out   []string
		start int
	)
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == ',' {
			out = appendNonEmpty(out, s[start:i])
			start = i + 1
		}
	}
	return appendNonEmpty(out, s[start:])
}

func appendNonEmpty(out []string, raw string) []string {
	if v := strings.TrimSpace(Unescape(raw)); v != "" {
		out = append(out, v)
	}
	return out
}
