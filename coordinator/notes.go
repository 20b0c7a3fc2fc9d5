package coordinator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/warp/jottick/generic"
)

// =============================================================================
// NOTES
// =============================================================================

func (c *Coordinator) CreateNote(ctx context.Context, title, content string) (generic.Note, error) {
	var out generic.Note
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		now := c.timestamp()
		out = generic.Note{
			ID:        c.newID(),
			Title:     strings.TrimSpace(title),
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		doc.Notes = append(doc.Notes, out)
		return nil
	})
	return out, err
}

// UpdateNote changes the fields that are non-nil.
func (c *Coordinator) UpdateNote(ctx context.Context, id string, title, content *string) (generic.Note, error) {
	var out generic.Note
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		n, err := findNote(doc, id)
		if err != nil {
			return err
		}
		if title != nil {
			n.Title = strings.TrimSpace(*title)
		}
		if content != nil {
			n.Content = *content
		}
		n.UpdatedAt = c.timestamp()
		out = *n
		return nil
	})
	return out, err
}

func (c *Coordinator) DeleteNote(ctx context.Context, id string) error {
	return c.update(ctx, func(doc *generic.Document, _ *change) error {
		i, n := doc.FindNote(id)
		if n == nil {
			return fmt.Errorf("%w: %s", generic.ErrNoteNotFound, id)
		}
		doc.Notes = slices.Delete(doc.Notes, i, i+1)
		return nil
	})
}

// AddNoteImage attaches an image URL to a note.
func (c *Coordinator) AddNoteImage(ctx context.Context, id, url string) (generic.Note, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return generic.Note{}, generic.Invalid("url", "must not be empty")
	}
	var out generic.Note
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		n, err := findNote(doc, id)
		if err != nil {
			return err
		}
		n.Images = append(n.Images, url)
		n.UpdatedAt = c.timestamp()
		out = *n
		return nil
	})
	return out, err
}

func (c *Coordinator) RemoveNoteImage(ctx context.Context, id string, index int) (generic.Note, error) {
	var out generic.Note
	err := c.update(ctx, func(doc *generic.Document, _ *change) error {
		n, err := findNote(doc, id)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(n.Images) {
			return generic.Invalid("index", fmt.Sprintf("image %d of %d", index, len(n.Images)))
		}
		n.Images = slices.Delete(n.Images, index, index+1)
		n.UpdatedAt = c.timestamp()
		out = *n
		return nil
	})
	return out, err
}

func findNote(doc *generic.Document, id string) (*generic.Note, error) {
	_, n := doc.FindNote(id)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", generic.ErrNoteNotFound, id)
	}
	return n, nil
}
