package feed

import (
	"context"
	"time"
)

// Adapter turns one source descriptor into normalized items. Implementations
// may block on network I/O; the orchestrator enforces the timeout cutoff
// through ctx regardless of adapter behavior.
type Adapter interface {
	Fetch(ctx context.Context, desc Descriptor) ([]Item, error)
}

// AdapterFunc adapts a plain function to the Adapter interface. Legacy-shaped
// fetch functions are wrapped once at registration time, not per call.
type AdapterFunc func(ctx context.Context, desc Descriptor) ([]Item, error)

// Fetch implements Adapter.
func (f AdapterFunc) Fetch(ctx context.Context, desc Descriptor) ([]Item, error) {
	return f(ctx, desc)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
