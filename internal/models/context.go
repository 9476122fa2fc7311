package models

import "context"

type runContextKey struct{}

// RunContext identifies one scheduled or operator-triggered unit of work
// so log lines emitted deep in the engine can be correlated.
type RunContext struct {
	RunId   string // uuid of the batch or request
	Trigger string // "tick", "queue", "http", "cli"
	Stage   string // "sync", "pair", "sweep", "challenge"
}

// WithRunContext attaches run data to a context.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// GetRunContext retrieves run data from context, or nil if absent.
func GetRunContext(ctx context.Context) *RunContext {
	rc, _ := ctx.Value(runContextKey{}).(*RunContext)
	return rc
}
