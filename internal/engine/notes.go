package engine

import (
	"context"
	"strings"
	"time"

	"github.com/cd3-tool/cd3/internal/types"
)

// Note events.
const (
	EventNoteAdded   = "note_added"
	EventNoteUpdated = "note_updated"
	EventNoteDeleted = "note_deleted"
)

// AddNote appends a note to an item.
func (e *Engine) AddNote(ctx context.Context, id, text string) (Result, error) {
	const op = "add note"
	return e.mutate(ctx, op, EventNoteAdded, func(w *working) (map[string]any, error) {
		it, err := w.mustFind(op, id)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, validationf(op, "note text is required")
		}
		it.Notes = append(it.Notes, newNote(text, e.now()))
		return map[string]any{"id": id, "index": len(it.Notes) - 1}, nil
	})
}

// UpdateNote replaces the text of the note at index (0-based).
func (e *Engine) UpdateNote(ctx context.Context, id string, index int, text string) (Result, error) {
	const op = "update note"
	return e.mutate(ctx, op, EventNoteUpdated, func(w *working) (map[string]any, error) {
		it, err := w.mustFind(op, id)
		if err != nil {
			return nil, err
		}
		if index < 0 || index >= len(it.Notes) {
			return nil, notFoundf(op, "item %s has no note %d", id, index+1)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, validationf(op, "note text is required")
		}
		it.Notes[index].Text = text
		it.Notes[index].ModifiedAt = e.now()
		return map[string]any{"id": id, "index": index}, nil
	})
}

// DeleteNote removes the note at index (0-based).
func (e *Engine) DeleteNote(ctx context.Context, id string, index int) (Result, error) {
	const op = "delete note"
	return e.mutate(ctx, op, EventNoteDeleted, func(w *working) (map[string]any, error) {
		it, err := w.mustFind(op, id)
		if err != nil {
			return nil, err
		}
		if index < 0 || index >= len(it.Notes) {
			return nil, notFoundf(op, "item %s has no note %d", id, index+1)
		}
		it.Notes = append(it.Notes[:index], it.Notes[index+1:]...)
		return map[string]any{"id": id, "index": index}, nil
	})
}

func newNote(text string, at time.Time) types.Note {
	return types.Note{Text: text, CreatedAt: at, ModifiedAt: at}
}
