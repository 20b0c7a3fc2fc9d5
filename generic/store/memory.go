// Package store provides Store implementations.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/warp/jottick/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// ErrInjected is returned by a Memory store after FailNextSave.
var ErrInjected = errors.New("memory store: injected save failure")

type Memory struct {
	mu       sync.RWMutex
	doc      *generic.Document
	saves    int
	failNext error
}

func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith returns a store pre-seeded with a copy of doc.
func NewMemoryWith(doc *generic.Document) *Memory {
	return &Memory{doc: doc.Clone()}
}

// Load returns a copy of the stored document, or nil if nothing was saved.
func (m *Memory) Load(_ context.Context) (*generic.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.doc == nil {
		return nil, nil
	}
	return m.doc.Clone(), nil
}

// Save stores a copy so later caller mutations do not leak in.
func (m *Memory) Save(_ context.Context, doc *generic.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.doc = doc.Clone()
	m.saves++
	return nil
}

func (m *Memory) Close() error { return nil }

// =============================================================================
// TEST HOOKS
// =============================================================================

// Saves reports how many saves succeeded.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// FailNextSave makes the next Save return err (ErrInjected when nil).
func (m *Memory) FailNextSave(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	m.failNext = err
}
