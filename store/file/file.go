/*
Package file provides a JSON-file implementation of generic.Store.

PURPOSE:
  The simplest durable backend: the whole document serialized into one
  file, replaced atomically on every save. This is the default backend.

FILE FORMAT:
  {
    "version": 1,
    "key": "jottick_data",
    "data": { ...Document... }
  }

  The envelope lets a future release migrate older layouts by looking at
  "version" before decoding "data".

DURABILITY:
  Writes go through natefinch/atomic: the new content is written to a
  temporary file in the same directory and renamed over the old one, so a
  crash leaves either the old or the new document, never a torn one.

USAGE:
  s, err := file.New("./data/jottick.json")
  doc, err := s.Load(ctx)   // nil, nil on first run

SEE ALSO:
  - generic/store.go: Store contract
  - store/sqlite/sqlite.go: Backend that also keeps older revisions
*/
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/warp/jottick/generic"
)

// StorageKey names the document inside the envelope.
const StorageKey = "jottick_data"

const filePerms = 0o600

// chmod is swapped in tests.
var chmod = os.Chmod

var errVersionUnsupported = errors.New("unsupported storage version")

type envelope struct {
	Version int               `json:"version"`
	Key     string            `json:"key"`
	Data    *generic.Document `json:"data"`
}

// Store keeps the document in a single JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store backed by path. The parent directory is created.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, generic.Invalid("store.path", "must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path is the file the document lives in.
func (s *Store) Path() string { return s.path }

// Load reads and decodes the document. A missing file is not an error.
func (s *Store) Load(_ context.Context) (*generic.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	if env.Version > generic.StorageVersion {
		return nil, fmt.Errorf("%w: %d", errVersionUnsupported, env.Version)
	}
	if env.Data == nil {
		return nil, nil
	}
	env.Data.Normalize()
	return env.Data, nil
}

// Save encodes doc and atomically replaces the file.
func (s *Store) Save(_ context.Context, doc *generic.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.MarshalIndent(envelope{
		Version: generic.StorageVersion,
		Key:     StorageKey,
		Data:    doc,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	// atomic.WriteFile doesn't set permissions for new files. The rename
	// already happened, so the save stands even if this fails.
	if err := chmod(s.path, filePerms); err != nil {
		log.Printf("[FileStore] Warning: failed to set permissions on %s: %v", s.path, err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
