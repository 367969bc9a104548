package engine

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"github.com/cd3-tool/cd3/internal/metrics"
	"github.com/cd3-tool/cd3/internal/sequence"
	"github.com/cd3-tool/cd3/internal/stage"
	"github.com/cd3-tool/cd3/internal/types"
)

// Analytics event names.
const (
	EventItemAdded       = "item_added"
	EventItemsBulkAdded  = "items_bulk_added"
	EventItemRemoved     = "item_removed"
	EventItemActivated   = "item_activated"
	EventItemRenamed     = "item_renamed"
	EventItemLinkSet     = "item_link_set"
	EventItemPropertySet = "item_property_set"
)

func (e *Engine) newItem(w *working, op, name, link string) (*types.Item, error) {
	name = strings.TrimSpace(name)
	if err := types.ValidateName(name); err != nil {
		return nil, validationf(op, "%v", err)
	}
	normalized := types.NormalizeLink(link)
	linkText := ""
	if normalized != nil {
		linkText = *normalized
	}
	id, err := e.ids.Next(name, linkText, func(id string) bool { return w.find(id) != nil })
	if err != nil {
		return nil, validationf(op, "%v", err)
	}
	it := types.NewItem(id, name, normalized, e.now())
	it.IsNewItem = w.state.PrioritizationStarted()
	metrics.Recompute(it, w.state.Buckets, w.state.ConfidenceWeights)
	w.items = append(w.items, it)
	return it, nil
}

// AddItem appends a new item. An invalid link is dropped, not rejected.
func (e *Engine) AddItem(ctx context.Context, name, link string) (Result, error) {
	return e.mutate(ctx, "add item", EventItemAdded, func(w *working) (map[string]any, error) {
		it, err := e.newItem(w, "add item", name, link)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": it.ID, "name": it.Name, "linkDropped": strings.TrimSpace(link) != "" && it.Link == nil}, nil
	})
}

// BulkLine is one parsed line of bulk input.
type BulkLine struct {
	Name string
	Link string
}

// ParseBulkLine splits "name[, url]". The link is only split off when the
// text after the last comma looks like a URL, so names may contain commas.
func ParseBulkLine(line string) BulkLine {
	line = strings.TrimSpace(line)
	if idx := strings.LastIndex(line, ","); idx >= 0 {
		tail := strings.TrimSpace(line[idx+1:])
		lower := strings.ToLower(tail)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			return BulkLine{Name: strings.TrimSpace(line[:idx]), Link: tail}
		}
	}
	return BulkLine{Name: line}
}

// BulkAddItems adds one item per non-blank line of text. Lines whose name
// is unusable are reported back and skipped; at least one line must be
// added.
func (e *Engine) BulkAddItems(ctx context.Context, text string) (Result, error) {
	const op = "bulk add"
	return e.mutate(ctx, op, EventItemsBulkAdded, func(w *working) (map[string]any, error) {
		added := []string{}
		rejected := []string{}
		sc := bufio.NewScanner(strings.NewReader(text))
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			raw := sc.Text()
			if strings.TrimSpace(raw) == "" {
				continue
			}
			line := ParseBulkLine(raw)
			it, err := e.newItem(w, op, line.Name, line.Link)
			if err != nil {
				rejected = append(rejected, raw)
				continue
			}
			added = append(added, it.ID)
		}
		if err := sc.Err(); err != nil {
			return nil, validationf(op, "read input: %v", err)
		}
		if len(added) == 0 {
			if len(rejected) == 0 {
				return nil, validationf(op, "no items to add")
			}
			return nil, validationf(op, "no usable lines (%d rejected)", len(rejected))
		}
		return map[string]any{"added": added, "rejected": rejected, "count": len(added)}, nil
	})
}

// RemoveItem deletes an item and closes the ranking gap it leaves.
func (e *Engine) RemoveItem(ctx context.Context, id string) (Result, error) {
	const op = "remove item"
	return e.mutate(ctx, op, EventItemRemoved, func(w *working) (map[string]any, error) {
		it, err := w.mustFind(op, id)
		if err != nil {
			return nil, err
		}
		kept := w.items[:0:0]
		for _, other := range w.items {
			if other != it {
				kept = append(kept, other)
			}
		}
		w.items = kept
		if it.Sequence != nil {
			sequence.Compact(w.items)
		}
		if w.state.ActiveSurveyItemID != nil && *w.state.ActiveSurveyItemID == id {
			w.state.ActiveSurveyItemID = nil
		}
		return map[string]any{"id": id, "name": it.Name}, nil
	})
}

// SetItemActive toggles the cosmetic active flag.
func (e *Engine) SetItemActive(ctx context.Context, id string, active bool) (Result, error) {
	const op = "set active"
	return e.mutate(ctx, op, EventItemActivated, func(w *working) (map[string]any, error) {
		it, err := w.mustFind(op, id)
		if err != nil {
			return nil, err
		}
		it.Active = active
		return map[string]any{"id": id, "active": active}, nil
	})
}

// RenameItem changes an item's name.
func (e *Engine) RenameItem(ctx context.Context, id, name string) (Result, error) {
	const op = "rename item"
	return e.mutate(ctx, op, EventItemRenamed, func(w *working) (map[string]any, error) {
		it, err := w.mustFind(op, id)
		if err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)
		if err := types.ValidateName(name); err != nil {
			return nil, validationf(op, "%v", err)
		}
		it.Name = name
		return map[string]any{"id": id, "name": name}, nil
	})
}

// SetItemLink sets or, with an empty link, clears an item's link.
func (e *Engine) SetItemLink(ctx context.Context, id, link string) (Result, error) {
	const op = "set link"
	return e.mutate(ctx, op, EventItemLinkSet, func(w *working) (map[string]any, error) {
		it, err := w.mustFind(op, id)
		if err != nil {
			return nil, err
		}
		link = strings.TrimSpace(link)
		if link == "" {
			it.Link = nil
			return map[string]any{"id": id, "link": nil}, nil
		}
		if !types.IsValidLink(link) {
			return nil, validationf(op, "link must be an http(s) URL (got %q)", link)
		}
		it.Link = &link
		return map[string]any{"id": id, "link": link}, nil
	})
}

// SetItemProperty rates an item in one category. Level 0 is only accepted
// on an unset rating; a set rating can change level but never go back.
func (e *Engine) SetItemProperty(ctx context.Context, id string, c types.Category, level types.Level) (Result, error) {
	const op = "set property"
	return e.mutate(ctx, op, EventItemPropertySet, func(w *working) (map[string]any, error) {
		if !c.IsValid() {
			return nil, validationf(op, "invalid property %q (valid: urgency, value, duration)", c)
		}
		if level < types.LevelUnset || level > types.LevelHigh {
			return nil, validationf(op, "level must be between 0 and 3 (got %d)", level)
		}
		if check := stage.CanEditCategory(c, w.state.CurrentStage, w.state.Locked); !check.OK {
			return nil, stageErr(op, check.Reason)
		}
		it, err := w.mustFind(op, id)
		if err != nil {
			return nil, err
		}
		r, err := it.Rating(c).Change(level)
		if err != nil {
			if errors.Is(err, types.ErrRatingLatched) {
				return nil, &Error{Kind: KindValidation, Op: op, Msg: "a " + string(c) + " rating cannot be cleared once set", Err: err}
			}
			return nil, validationf(op, "%v", err)
		}
		it.SetRating(c, r)
		if c == types.CategoryUrgency && r.IsSet() {
			it.IsNewItem = false
		}

		before := snapshotCD3(w.items)
		metrics.Recompute(it, w.state.Buckets, w.state.ConfidenceWeights)
		rescore(w, []*types.Item{it}, before)

		return map[string]any{
			"id":       id,
			"property": string(c),
			"level":    int(level),
			"cd3":      it.CD3,
			"sequence": it.SequenceValue(),
		}, nil
	})
}
