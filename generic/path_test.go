package generic_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/jottick/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// tree builds:
//
//	0 Kitchen
//	1 Garage
//	  1.0 Tools
//	      1.0.0 Hammer
//	  1.1 Bikes
//	2 Garden
func tree() []generic.Item {
	return []generic.Item{
		{Text: "Kitchen", Children: []generic.Item{}},
		{Text: "Garage", Children: []generic.Item{
			{Text: "Tools", Children: []generic.Item{
				{Text: "Hammer", Children: []generic.Item{}},
			}},
			{Text: "Bikes", Children: []generic.Item{}},
		}},
		{Text: "Garden", Children: []generic.Item{}},
	}
}

// =============================================================================
// PARSING
// =============================================================================

func TestParsePath(t *testing.T) {
	valid := map[string]generic.IndexPath{
		"0":     {0},
		"2.1.0": {2, 1, 0},
		"10.07": {10, 7},
	}
	for in, want := range valid {
		got, err := generic.ParsePath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", ".", "1.", ".1", "1..2", "-1", "+1", " 1", "a", "1.b", "1.2 "} {
		_, err := generic.ParsePath(in)
		assert.ErrorIs(t, err, generic.ErrMalformedPath, "%q", in)
		assert.True(t, generic.IsClientError(err), "%q", in)
	}
}

func TestIndexPath_StringChildParent(t *testing.T) {
	p := generic.MustParsePath("2.1")

	assert.Equal(t, "2.1", p.String())
	assert.Equal(t, "2.1.4", p.Child(4).String())
	assert.Equal(t, "2", p.Parent().String())
	assert.Nil(t, generic.MustParsePath("3").Parent())

	// Child does not alias the receiver
	c := p.Child(0)
	c[0] = 9
	assert.Equal(t, "2.1", p.String())
}

// =============================================================================
// RESOLUTION
// =============================================================================

func TestResolveItem(t *testing.T) {
	items := tree()

	it, err := generic.ResolveString(items, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "Hammer", it.Text)

	// THEN: The pointer aliases the tree
	it.Completed = true
	assert.True(t, items[1].Children[0].Children[0].Completed)
}

func TestResolveItem_OutOfRange(t *testing.T) {
	before := tree()
	items := tree()

	for _, in := range []string{"3", "1.2", "1.0.0.0", "0.0"} {
		_, err := generic.ResolveString(items, in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, generic.ErrPathOutOfRange, in)

		var pe *generic.PathError
		require.ErrorAs(t, err, &pe, in)
		assert.Equal(t, in, pe.Path)
	}

	// THEN: Nothing was created along the way
	assert.Empty(t, cmp.Diff(before, items))
}

func TestRemoveAt(t *testing.T) {
	items := tree()

	removed, err := generic.RemoveAt(&items, generic.MustParsePath("1.0"))
	require.NoError(t, err)

	// THEN: The whole subtree goes; siblings shift down
	assert.Equal(t, "Tools", removed.Text)
	require.Len(t, items[1].Children, 1)
	assert.Equal(t, "Bikes", items[1].Children[0].Text)

	_, err = generic.RemoveAt(&items, generic.MustParsePath("7"))
	assert.ErrorIs(t, err, generic.ErrPathOutOfRange)
	assert.Len(t, items, 3)
}

func TestAppendChild(t *testing.T) {
	items := tree()

	p, err := generic.AppendChild(&items, nil, generic.Item{Text: "Attic"})
	require.NoError(t, err)
	assert.Equal(t, "3", p.String())
	assert.NotNil(t, items[3].Children)

	p, err = generic.AppendChild(&items, generic.MustParsePath("1.1"), generic.Item{Text: "Pump"})
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", p.String())

	// WHEN: The parent does not exist
	before := generic.Flatten(items)
	_, err = generic.AppendChild(&items, generic.MustParsePath("1.5"), generic.Item{Text: "Ghost"})

	// THEN: Strict failure, tree untouched
	assert.ErrorIs(t, err, generic.ErrPathOutOfRange)
	assert.Empty(t, cmp.Diff(before, generic.Flatten(items)))
}
