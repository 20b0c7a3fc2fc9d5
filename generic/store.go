/*
store.go - Persistence interface for the household document

PURPOSE:
  Defines the interface between the coordinator and whatever holds the
  document between runs. The contract is deliberately tiny: the whole
  document is loaded once and rewritten in full after every mutation.

KEY INTERFACES:
  Store:          Load / Save / Close of the whole document
  RevisionStore:  Stores that keep older copies and can hand them back

WHOLE-DOCUMENT CONTRACT:
  - Load() returns (nil, nil) when nothing was ever saved
  - Save() persists the complete document; partial writes must not be
    observable (atomic rename for files, a transaction for SQL)
  - Callers own the document they pass to Save; stores must not retain it

IMPLEMENTATIONS:
  - store/file/file.go: JSON file, atomic rename
  - store/sqlite/sqlite.go: Append-only revisions table
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - coordinator/coordinator.go: The single writer that drives a Store
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Whole-document persistence
// =============================================================================

// Store persists the household document.
type Store interface {
	// Load returns the last saved document, or nil when none exists.
	Load(ctx context.Context) (*Document, error)

	// Save replaces the persisted document with doc.
	Save(ctx context.Context, doc *Document) error

	// Close releases any held resources.
	Close() error
}

// Revision describes one saved copy of the document.
type Revision struct {
	Number  int       `json:"revision"`
	SavedAt time.Time `json:"saved_at"`
	Size    int       `json:"size"`
}

// RevisionStore extends Store with access to earlier saves.
type RevisionStore interface {
	Store

	// Revisions lists retained revisions, newest first.
	Revisions(ctx context.Context) ([]Revision, error)

	// LoadRevision returns the document as it was at revision n.
	LoadRevision(ctx context.Context, n int) (*Document, error)
}

// StorageVersion is the envelope version written by file-based stores.
const StorageVersion = 1
