package main

import (
	"fmt"
	"io"

	"github.com/cd3-tool/cd3/internal/buckets"
	"github.com/cd3-tool/cd3/internal/debug"
	"github.com/cd3-tool/cd3/internal/engine"
	"github.com/cd3-tool/cd3/internal/ui"
)

// cliObserver is the engine's render collaborator for the terminal. It
// shows the stage bar after stage changes and warns when a bucket goes
// over its limit.
type cliObserver struct {
	w    io.Writer
	over map[buckets.Ref]bool
}

func newCLIObserver(w io.Writer) *cliObserver {
	return &cliObserver{w: w}
}

// prime records the buckets already over their limit so only new
// overflows are reported.
func (o *cliObserver) prime(refs []buckets.Ref) {
	o.over = make(map[buckets.Ref]bool, len(refs))
	for _, r := range refs {
		o.over[r] = true
	}
}

// Render implements engine.Observer.
func (o *cliObserver) Render(s engine.Snapshot) {
	if o.over == nil {
		o.over = map[buckets.Ref]bool{}
	}
	quiet := jsonOutput || debug.IsQuiet()

	if s.Event == engine.EventStageChanged && !quiet {
		fmt.Fprintln(o.w, ui.RenderStageBar(s.State))
	}

	current := buckets.OverLimit(s.State.Buckets)
	now := make(map[buckets.Ref]bool, len(current))
	for _, r := range current {
		now[r] = true
		if o.over[r] || quiet {
			continue
		}
		b, _ := s.State.Buckets.Get(r.Category, r.Level)
		limit := 0
		if b.Limit != nil {
			limit = *b.Limit
		}
		fmt.Fprintf(o.w, "%s %s holds %d items, limit is %d\n",
			ui.RenderWarnIcon(), ui.RenderWarn(b.Title), b.Count, limit)
	}
	o.over = now
}
