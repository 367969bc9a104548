// Package engine is the prioritization engine: the single owner of the
// session state and the item list. Every user intent is validated against
// a working copy, applied, followed by a recompute of everything derived,
// then committed, persisted and announced to the observer and analytics.
//
// An Engine is not safe for concurrent use.
package engine

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cd3-tool/cd3/internal/buckets"
	"github.com/cd3-tool/cd3/internal/idgen"
	"github.com/cd3-tool/cd3/internal/metrics"
	"github.com/cd3-tool/cd3/internal/migrate"
	"github.com/cd3-tool/cd3/internal/sequence"
	"github.com/cd3-tool/cd3/internal/stage"
	"github.com/cd3-tool/cd3/internal/types"
)

// Persister stores the committed session. storage.Store implements it.
type Persister interface {
	Save(ctx context.Context, state *types.AppState, items []*types.Item) error
	ClearAll(ctx context.Context) error
}

// Store is a Persister that can also load the session.
type Store interface {
	Persister
	LoadState(ctx context.Context) (json.RawMessage, error)
	LoadItems(ctx context.Context) (json.RawMessage, error)
}

// Analytics receives one event per successful intent.
type Analytics interface {
	Track(ctx context.Context, event string, props map[string]any)
}

// NopAnalytics discards events.
type NopAnalytics struct{}

// Track implements Analytics.
func (NopAnalytics) Track(context.Context, string, map[string]any) {}

// Snapshot is a read-only copy of the session after a mutation.
type Snapshot struct {
	Event string
	State *types.AppState
	Items []*types.Item
}

// Observer is notified after every committed mutation.
type Observer interface {
	Render(Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

// Render implements Observer.
func (f ObserverFunc) Render(s Snapshot) { f(s) }

// Engine owns one prioritization session.
type Engine struct {
	state *types.AppState
	items []*types.Item

	ids       *idgen.Generator
	idPrefix  string
	now       func() time.Time
	log       *zap.Logger
	persister Persister
	analytics Analytics
	observer  Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithPersister saves the session after every intent.
func WithPersister(p Persister) Option {
	return func(e *Engine) { e.persister = p }
}

// WithAnalytics sets the analytics sink.
func WithAnalytics(a Analytics) Option {
	return func(e *Engine) {
		if a != nil {
			e.analytics = a
		}
	}
}

// WithObserver sets the render observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDPrefix sets the prefix of minted item ids.
func WithIDPrefix(prefix string) Option {
	return func(e *Engine) { e.idPrefix = prefix }
}

// WithSession starts the engine from an existing state and item list.
// Both are cloned and every derived field is recomputed.
func WithSession(state *types.AppState, items []*types.Item) Option {
	return func(e *Engine) {
		if state != nil {
			e.state = state.Clone()
		}
		e.items = types.CloneItems(items)
	}
}

// New returns an engine holding a fresh session (or the one given by
// WithSession).
func New(opts ...Option) *Engine {
	e := &Engine{
		state:     types.DefaultAppState(),
		items:     []*types.Item{},
		now:       time.Now,
		log:       zap.NewNop(),
		analytics: NopAnalytics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ids = idgen.New(e.idPrefix, e.now)
	metrics.RecomputeAll(e.items, e.state.Buckets, e.state.ConfidenceWeights, "")
	buckets.RecomputeCounts(e.state.Buckets, e.items)
	return e
}

// Open loads the session from store, migrating and repairing it, and uses
// store as the persister.
func Open(ctx context.Context, store Store, opts ...Option) (*Engine, *migrate.Report, error) {
	e := New(append([]Option{WithPersister(store)}, opts...)...)
	state, items, report, err := migrate.Load(ctx, store, e.ids, e.now(), e.log)
	if err != nil {
		return nil, nil, wrap(KindPersistence, "open", err)
	}
	e.state, e.items = state, items
	if report.Changed() {
		e.log.Info("session repaired on load",
			zap.Int("fromVersion", report.FromVersion),
			zap.Int("changes", len(report.Changes)))
	}
	return e, report, nil
}

// working is the mutable copy an intent operates on.
type working struct {
	state *types.AppState
	items []*types.Item
}

func (w *working) find(id string) *types.Item {
	for _, it := range w.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (w *working) mustFind(op, id string) (*types.Item, error) {
	if it := w.find(id); it != nil {
		return it, nil
	}
	return nil, notFoundf(op, "item %s not found", id)
}

// mutate runs fn on a working copy. On error nothing changes. On success
// the copy is committed, persisted, rendered and tracked as event.
func (e *Engine) mutate(ctx context.Context, op, event string, fn func(w *working) (map[string]any, error)) (Result, error) {
	w := &working{state: e.state.Clone(), items: types.CloneItems(e.items)}
	extra, err := fn(w)
	if err != nil {
		e.log.Debug("intent rejected", zap.String("op", op), zap.Error(err))
		return ResultOf(err, nil), err
	}

	if err := sequence.Validate(w.items); err != nil {
		e.log.Error("ranking lost contiguity, compacting", zap.String("op", op), zap.Error(err))
		sequence.Compact(w.items)
	}
	buckets.RecomputeCounts(w.state.Buckets, w.items)
	w.state.UpdatedAt = e.now()

	e.state, e.items = w.state, w.items
	e.log.Debug("intent applied", zap.String("op", op), zap.Any("extra", extra))

	var persistErr error
	if e.persister != nil {
		if err := e.persister.Save(ctx, e.state, e.items); err != nil {
			persistErr = wrap(KindPersistence, op, err)
			e.log.Error("failed to persist session", zap.String("op", op), zap.Error(err))
		}
	}

	e.notify(event)
	e.analytics.Track(ctx, event, extra)

	if persistErr != nil {
		return ResultOf(persistErr, extra), persistErr
	}
	return ResultOf(nil, extra), nil
}

func (e *Engine) notify(event string) {
	if e.observer == nil {
		return
	}
	e.observer.Render(Snapshot{
		Event: event,
		State: e.state.Clone(),
		Items: types.CloneItems(e.items),
	})
}

// rescore recomputes it and keeps the ranking in step: an item whose CD3
// just became positive is inserted once results have been reached, and
// any other CD3 change re-sorts an automatic ranking.
func rescore(w *working, changed []*types.Item, before map[string]float64) {
	if !w.state.HasVisited(types.StageResults) {
		return
	}
	resort := false
	for _, it := range changed {
		prev := before[it.ID]
		switch {
		case prev == 0 && it.CD3 > 0:
			sequence.Insert(w.items, it, w.state.ResultsManuallyReordered)
		case prev != it.CD3:
			resort = true
		}
	}
	if resort && !w.state.ResultsManuallyReordered {
		sequence.Resequence(w.items)
	}
}

func snapshotCD3(items []*types.Item) map[string]float64 {
	out := make(map[string]float64, len(items))
	for _, it := range items {
		out[it.ID] = it.CD3
	}
	return out
}

// recomputeCategory recomputes the items a weight change in c reaches and
// re-ranks the ones whose CD3 moved.
func recomputeCategory(w *working, c types.Category) []string {
	before := snapshotCD3(w.items)
	ids := metrics.RecomputeAll(w.items, w.state.Buckets, w.state.ConfidenceWeights, c)
	var changed []*types.Item
	for _, id := range ids {
		changed = append(changed, w.find(id))
	}
	rescore(w, changed, before)
	return ids
}

// State returns a copy of the session state.
func (e *Engine) State() *types.AppState {
	return e.state.Clone()
}

// Stage returns the current stage.
func (e *Engine) Stage() types.Stage {
	return e.state.CurrentStage
}

// Items returns copies of every item in insertion order.
func (e *Engine) Items() []*types.Item {
	return types.CloneItems(e.items)
}

// Snapshot returns copies of the state and items.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{State: e.State(), Items: e.Items()}
}

// Item returns a copy of the item with the given id.
func (e *Engine) Item(id string) (*types.Item, error) {
	for _, it := range e.items {
		if it.ID == id {
			return it.Clone(), nil
		}
	}
	return nil, notFoundf("item", "item %s not found", id)
}

// ResolveItem finds an item by exact id, unique id prefix, or exact
// case-insensitive name.
func (e *Engine) ResolveItem(ref string) (*types.Item, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, validationf("resolve", "item reference is required")
	}
	if it, err := e.Item(ref); err == nil {
		return it, nil
	}

	var matches []*types.Item
	for _, it := range e.items {
		if strings.HasPrefix(it.ID, ref) {
			matches = append(matches, it)
		}
	}
	if len(matches) == 0 {
		for _, it := range e.items {
			if strings.EqualFold(it.Name, ref) {
				matches = append(matches, it)
			}
		}
	}
	switch len(matches) {
	case 0:
		return nil, notFoundf("resolve", "no item matches %q", ref)
	case 1:
		return matches[0].Clone(), nil
	}
	ids := make([]string, len(matches))
	for i, it := range matches {
		ids[i] = it.ID
	}
	return nil, validationf("resolve", "%q is ambiguous: %s", ref, strings.Join(ids, ", "))
}

// SortedByCD3 returns copies of the items in CD3 order.
func (e *Engine) SortedByCD3() []*types.Item {
	return metrics.SortedByCD3(e.Items())
}

// Results returns copies of the items in results order: ranked items
// first, then the rest by CD3.
func (e *Engine) Results() []*types.Item {
	return sequence.Ordered(e.Items())
}

// ParkingLot returns copies of the items still lacking the current stage's
// category. It is empty outside the rating stages.
func (e *Engine) ParkingLot() []*types.Item {
	c, ok := e.state.CurrentStage.Category()
	if !ok {
		return nil
	}
	return types.CloneItems(stage.ParkingLot(c, e.items))
}

// CanAdvance reports whether the workflow may move to the next stage.
func (e *Engine) CanAdvance() stage.Check {
	return stage.CanAdvance(e.state.CurrentStage, e.items)
}

// CanEdit reports whether ratings of category c may change now.
func (e *Engine) CanEdit(c types.Category) stage.Check {
	return stage.CanEditCategory(c, e.state.CurrentStage, e.state.Locked)
}

// OverLimit lists the buckets holding more items than their limit.
func (e *Engine) OverLimit() []buckets.Ref {
	return buckets.OverLimit(e.state.Buckets)
}
