package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/jottick/generic"
	"github.com/warp/jottick/store/file"
)

func TestFileStore_LoadMissingReturnsNil(t *testing.T) {
	s, err := file.New(filepath.Join(t.TempDir(), "nested", "jottick.json"))
	require.NoError(t, err)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFileStore_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jottick.json")
	s, err := file.New(path)
	require.NoError(t, err)

	// GIVEN: A document with a nested checklist
	doc := generic.NewDocument()
	doc.Checklists = append(doc.Checklists, generic.Checklist{
		ID:    "list-1",
		Title: "Groceries",
		Items: []generic.Item{{
			Text:     "Dairy",
			Children: []generic.Item{{Text: "Milk", Children: []generic.Item{}, DueDate: "2025-03-01", DueTime: "09:30"}},
		}},
	})
	doc.PointsUsers["u1"] = &generic.PointsUser{Name: "Ada", Points: 5}

	// WHEN: Saved and loaded back
	require.NoError(t, s.Save(ctx, doc))
	got, err := s.Load(ctx)
	require.NoError(t, err)

	// THEN: Everything survives, including normalization of the user id
	require.NotNil(t, got)
	assert.Equal(t, "Milk", got.Checklists[0].Items[0].Children[0].Text)
	assert.Equal(t, "09:30", got.Checklists[0].Items[0].Children[0].DueTime)
	assert.Equal(t, generic.ChecklistSimple, got.Checklists[0].Type)
	assert.Equal(t, "u1", got.PointsUsers["u1"].ID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_WritesEnvelope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jottick.json")
	s, err := file.New(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), generic.NewDocument()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"version": 1`)
	assert.Contains(t, string(raw), `"key": "jottick_data"`)
}

func TestFileStore_RejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jottick.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "key": "jottick_data", "data": {}}`), 0o600))

	s, err := file.New(path)
	require.NoError(t, err)
	_, err = s.Load(context.Background())
	assert.Error(t, err)
}

func TestFileStore_EmptyPathInvalid(t *testing.T) {
	_, err := file.New("")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestFileStore_SaveSurvivesChmodFailure(t *testing.T) {
	ctx := context.Background()
	s, err := file.New(filepath.Join(t.TempDir(), "jottick.json"))
	require.NoError(t, err)

	// GIVEN: Permissions cannot be set after the rename
	restore := file.SetChmod(func(string, os.FileMode) error {
		return errors.New("read-only mount")
	})
	defer restore()

	// WHEN: Saving
	doc := generic.NewDocument()
	doc.PointsAdmins = []string{"mom"}
	err = s.Save(ctx, doc)

	// THEN: The save is reported as done and the disk agrees
	require.NoError(t, err)
	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mom"}, loaded.PointsAdmins)
}
