/*
Package sqlite provides a SQLite-backed implementation of generic.Store.

PURPOSE:
  Persists the household document as an append-only series of revisions.
  Every Save inserts a new row; Load reads the newest one. Older rows are
  kept (up to KeepRevisions) so a bad write can be rolled back by hand.

INTERFACES IMPLEMENTED:
  generic.Store:          Load / Save / Close
  generic.RevisionStore:  Revisions / LoadRevision

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on document_revisions
  - DELETE only prunes revisions older than the retention window
  - Insert and prune run in one SQL transaction

KEY TABLES:
  document_revisions: (key, revision) unique, body is the JSON document

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/jottick.db", sqlite.KeepRevisions(50))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - store/file/file.go: Single-file backend
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/jottick/generic"
)

// DefaultKeepRevisions is how many revisions survive pruning.
const DefaultKeepRevisions = 20

// DocumentKey is the key the household document is stored under.
const DocumentKey = "jottick_data"

// ErrRevisionNotFound is returned by LoadRevision for pruned or unknown revisions.
var ErrRevisionNotFound = errors.New("revision not found")

// Store implements generic.RevisionStore using SQLite.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	keep int
	now  generic.Clock
}

// Option configures a Store.
type Option func(*Store)

// KeepRevisions sets the retention window. Values below 1 keep one.
func KeepRevisions(n int) Option {
	return func(s *Store) {
		if n < 1 {
			n = 1
		}
		s.keep = n
	}
}

// WithClock overrides the clock used for saved_at.
func WithClock(c generic.Clock) Option {
	return func(s *Store) { s.now = c }
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, keep: DefaultKeepRevisions, now: generic.SystemClock}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS document_revisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL,
		revision INTEGER NOT NULL,
		body TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_document_revisions_key_revision
		ON document_revisions(key, revision);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOCUMENT STORE (generic.Store interface)
// =============================================================================

// Load returns the newest revision, or nil when nothing was saved yet.
func (s *Store) Load(ctx context.Context) (*generic.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM document_revisions WHERE key = ? ORDER BY revision DESC LIMIT 1`,
		DocumentKey,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return decode(body)
}

// Save appends a new revision and prunes old ones in one transaction.
func (s *Store) Save(ctx context.Context, doc *generic.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var latest int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(revision), 0) FROM document_revisions WHERE key = ?`,
			DocumentKey,
		).Scan(&latest); err != nil {
			return fmt.Errorf("failed to read latest revision: %w", err)
		}

		next := latest + 1
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document_revisions (key, revision, body, saved_at) VALUES (?, ?, ?, ?)`,
			DocumentKey, next, string(body), s.now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to append revision: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM document_revisions WHERE key = ? AND revision <= ?`,
			DocumentKey, next-s.keep,
		); err != nil {
			return fmt.Errorf("failed to prune revisions: %w", err)
		}
		return nil
	})
}

// withTx executes fn within a database transaction.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// REVISIONS (generic.RevisionStore interface)
// =============================================================================

// Revisions lists retained revisions, newest first.
func (s *Store) Revisions(ctx context.Context) ([]generic.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT revision, saved_at, LENGTH(body) FROM document_revisions WHERE key = ? ORDER BY revision DESC`,
		DocumentKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	out := []generic.Revision{}
	for rows.Next() {
		var (
			r       generic.Revision
			savedAt string
		)
		if err := rows.Scan(&r.Number, &savedAt, &r.Size); err != nil {
			return nil, err
		}
		r.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadRevision returns the document as saved in revision n.
func (s *Store) LoadRevision(ctx context.Context, n int) (*generic.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM document_revisions WHERE key = ? AND revision = ?`,
		DocumentKey, n,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRevisionNotFound, n)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load revision %d: %w", n, err)
	}
	return decode(body)
}

func decode(body string) (*generic.Document, error) {
	doc := &generic.Document{}
	if err := json.Unmarshal([]byte(body), doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	doc.Normalize()
	return doc, nil
}
