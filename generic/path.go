/*
path.go - Dotted index paths into nested item trees

PURPOSE:
  An IndexPath addresses exactly one Item by descending from a root item
  slice through each Children slice. "0" is the first root item, "2.1.0"
  is the first child of the second child of the third root item.

CRITICAL INVARIANTS:
  1. STRICT: Every segment is bounds-checked. A path that runs off the tree
     is an error, never a silent no-op and never an auto-created child.
  2. READ-ONLY: Resolution never mutates the tree. Only the caller, holding
     the returned pointer, decides what to change.
  3. CANONICAL: Segments are plain decimal digits. "+1", "-0", " 1", "1."
     and "" are malformed.

ALIASING:
  ResolveItem returns a pointer into the backing array of the slice it
  walked. It stays valid until that slice (or one of its ancestors) is
  re-allocated, so resolve, mutate, and drop the pointer within one
  operation.

SEE ALSO:
  - tree.go: Walks that produce index paths (Flatten, DueItems)
  - errors.go: PathError, ErrMalformedPath, ErrPathOutOfRange
*/
package generic

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// IndexPath is a parsed dotted path. The zero value addresses nothing.
type IndexPath []int

// ParsePath parses a dotted string of non-negative integers.
func ParsePath(s string) (IndexPath, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrMalformedPath)
	}
	parts := strings.Split(s, ".")
	p := make(IndexPath, len(parts))
	for i, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: empty segment %d in %q", ErrMalformedPath, i, s)
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return nil, fmt.Errorf("%w: segment %q in %q is not a non-negative integer", ErrMalformedPath, part, s)
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q in %q: %v", ErrMalformedPath, part, s, err)
		}
		p[i] = n
	}
	return p, nil
}

// MustParsePath panics on malformed input. Tests and literals only.
func MustParsePath(s string) IndexPath {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p IndexPath) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Child returns the path of the i-th child of p.
func (p IndexPath) Child(i int) IndexPath {
	out := make(IndexPath, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// Parent returns the path without its last segment (nil for a root item).
func (p IndexPath) Parent() IndexPath {
	if len(p) <= 1 {
		return nil
	}
	return slices.Clone(p[:len(p)-1])
}

// =============================================================================
// RESOLUTION
// =============================================================================

// ResolveItem walks items along p and returns the addressed item.
func ResolveItem(items []Item, p IndexPath) (*Item, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrMalformedPath)
	}
	level := items
	var target *Item
	for depth, idx := range p {
		if idx < 0 || idx >= len(level) {
			return nil, &PathError{Path: p.String(), Depth: depth, Index: idx, Len: len(level)}
		}
		target = &level[idx]
		level = target.Children
	}
	return target, nil
}

// ResolveSlot returns the slice that holds the addressed item and the item's
// position in it. The slice pointer lets callers remove or replace the item.
func ResolveSlot(root *[]Item, p IndexPath) (*[]Item, int, error) {
	if len(p) == 0 {
		return nil, 0, fmt.Errorf("%w: empty path", ErrMalformedPath)
	}
	level := root
	for depth, idx := range p {
		if idx < 0 || idx >= len(*level) {
			return nil, 0, &PathError{Path: p.String(), Depth: depth, Index: idx, Len: len(*level)}
		}
		if depth == len(p)-1 {
			return level, idx, nil
		}
		level = &(*level)[idx].Children
	}
	return nil, 0, fmt.Errorf("%w: empty path", ErrMalformedPath)
}

// ResolveString parses and resolves in one step.
func ResolveString(items []Item, s string) (*Item, error) {
	p, err := ParsePath(s)
	if err != nil {
		return nil, err
	}
	return ResolveItem(items, p)
}

// RemoveAt deletes the addressed item (and its subtree) and returns it.
func RemoveAt(root *[]Item, p IndexPath) (Item, error) {
	slot, idx, err := ResolveSlot(root, p)
	if err != nil {
		return Item{}, err
	}
	removed := (*slot)[idx]
	*slot = slices.Delete(*slot, idx, idx+1)
	return removed, nil
}

// AppendChild appends item under parent (nil parent = root level) and
// returns the path of the new item.
func AppendChild(root *[]Item, parent IndexPath, item Item) (IndexPath, error) {
	if item.Children == nil {
		item.Children = []Item{}
	}
	if len(parent) == 0 {
		*root = append(*root, item)
		return IndexPath{len(*root) - 1}, nil
	}
	target, err := ResolveItem(*root, parent)
	if err != nil {
		return nil, err
	}
	target.Children = append(target.Children, item)
	return parent.Child(len(target.Children) - 1), nil
}
