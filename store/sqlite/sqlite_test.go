package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/jottick/generic"
	"github.com/warp/jottick/store/sqlite"
)

func newStore(t *testing.T, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:", opts...)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func docWithNote(title string) *generic.Document {
	doc := generic.NewDocument()
	doc.Notes = append(doc.Notes, generic.Note{ID: "n1", Title: title})
	return doc
}

func TestSQLite_EmptyLoad(t *testing.T) {
	store := newStore(t)

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSQLite_LoadReturnsNewestRevision(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	// GIVEN: Three saves with different titles
	for _, title := range []string{"first", "second", "third"} {
		require.NoError(t, store.Save(ctx, docWithNote(title)))
	}

	// WHEN: Loading
	doc, err := store.Load(ctx)
	require.NoError(t, err)

	// THEN: The last save wins
	require.Len(t, doc.Notes, 1)
	assert.Equal(t, "third", doc.Notes[0].Title)

	// AND: Older revisions remain reachable
	old, err := store.LoadRevision(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "first", old.Notes[0].Title)
}

func TestSQLite_PrunesBeyondRetention(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newStore(t, sqlite.KeepRevisions(2), sqlite.WithClock(func() time.Time { return fixed }))

	for _, title := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Save(ctx, docWithNote(title)))
	}

	revs, err := store.Revisions(ctx)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, 4, revs[0].Number)
	assert.Equal(t, 3, revs[1].Number)
	assert.True(t, revs[0].SavedAt.Equal(fixed))
	assert.Positive(t, revs[0].Size)

	_, err = store.LoadRevision(ctx, 1)
	assert.ErrorIs(t, err, sqlite.ErrRevisionNotFound)
}

func TestSQLite_NormalizesOnLoad(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	doc := generic.NewDocument()
	doc.PointsUsers["kid"] = &generic.PointsUser{Name: "Kid", Points: 3}
	require.NoError(t, store.Save(ctx, doc))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kid", got.PointsUsers["kid"].ID)
	assert.NotNil(t, got.ImportedEvents)
}

var _ generic.RevisionStore = (*sqlite.Store)(nil)
