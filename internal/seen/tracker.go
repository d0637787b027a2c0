package seen

import (
	"sync"
	"time"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// Tracker holds the watermark and pending-open markers for one source. All
// mutation goes through the deferred-commit methods; the orchestrator never
// touches it. A Tracker is safe for concurrent reads against the single
// mutating event path.
type Tracker struct {
	mu   sync.Mutex
	kind feed.Kind

	scalar time.Time
	keyed  KeyedMark
	ids    IdentityMark

	// pending is the captured open time for scalar/identity sources; at most
	// one per source.
	pending *time.Time
	// pendingKeyed carries one captured open time per sub-key.
	pendingKeyed map[string]time.Time
	// openSub is the single open sub-key for keyed sources.
	openSub string
	open    bool
}

// NewTracker creates a Tracker with a zero/empty watermark for the kind.
func NewTracker(kind feed.Kind) *Tracker {
	return &Tracker{
		kind:         kind,
		keyed:        make(KeyedMark),
		ids:          make(IdentityMark),
		pendingKeyed: make(map[string]time.Time),
	}
}

// Kind returns the watermark shape this tracker maintains.
func (t *Tracker) Kind() feed.Kind { return t.kind }

// Mark returns the current watermark as an atomically replaced value. Keyed
// and identity marks are copied so later commits cannot tear a reader.
func (t *Tracker) Mark() Mark {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.kind {
	case feed.KindKeyed:
		return t.keyed.clone()
	case feed.KindIdentity:
		return t.ids.clone()
	default:
		return ScalarMark{At: t.scalar}
	}
}

// IsOpen reports whether a view of this source is currently open, and for
// keyed sources which sub-key it is.
func (t *Tracker) IsOpen() (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open, t.openSub
}

// Open records a view-open event at now. For keyed sources subKey names the
// sub-view; opening a different sub-key first commits the previously open
// one. The watermark itself is untouched.
func (t *Tracker) Open(subKey string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.kind == feed.KindKeyed && subKey != "" {
		if t.openSub != "" && t.openSub != subKey {
			t.commitKeyedLocked(t.openSub)
		}
		t.openSub = subKey
		if _, exists := t.pendingKeyed[subKey]; !exists {
			t.pendingKeyed[subKey] = now
		}
		t.open = true
		return
	}
	if !t.open {
		captured := now
		t.pending = &captured
	}
	t.open = true
}

// Close records a view-close event and commits the pending marker: the
// watermark advances to the time the view was opened, not closed. Identity
// sources instead snapshot the identifiers visible at commit time, replacing
// the previous set outright. items is the currently rendered item set.
func (t *Tracker) Close(items []feed.Item) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.kind {
	case feed.KindKeyed:
		if t.openSub != "" {
			t.commitKeyedLocked(t.openSub)
		}
		t.openSub = ""
	case feed.KindIdentity:
		t.ids = Snapshot(items)
		t.pending = nil
	default:
		if t.pending != nil {
			t.advanceScalarLocked(*t.pending)
			t.pending = nil
		}
	}
	t.open = false
}

// MarkAllSeen commits everything visible right now: scalar and keyed marks
// jump to now (keyed for every sub-key present in items), identity marks
// snapshot the current identifiers. Pending markers are cleared and the view
// is closed.
func (t *Tracker) MarkAllSeen(items []feed.Item, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.kind {
	case feed.KindKeyed:
		for _, it := range items {
			t.advanceKeyedLocked(it.SubKey(), now)
		}
		t.pendingKeyed = make(map[string]time.Time)
		t.openSub = ""
	case feed.KindIdentity:
		t.ids = Snapshot(items)
		t.pending = nil
	default:
		t.advanceScalarLocked(now)
		t.pending = nil
	}
	t.open = false
}

// OnRefresh applies the idle auto-advance rule after a background refresh
// while the view is open: when the refreshed item set has exactly zero new
// items under the current watermark, the mark advances to the refresh time
// (identity sources snapshot instead, pruning identifiers that vanished).
// Any new item blocks the advance so the human still sees it. Returns whether
// the mark advanced.
func (t *Tracker) OnRefresh(items []feed.Item, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return false
	}
	switch t.kind {
	case feed.KindKeyed:
		if _, fresh := CountNew(items, t.keyed); fresh != 0 {
			return false
		}
		next := t.keyed.clone()
		for _, it := range items {
			if now.After(next[it.SubKey()]) {
				next[it.SubKey()] = now
			}
		}
		t.keyed = next
	case feed.KindIdentity:
		if _, fresh := CountNew(items, t.ids); fresh != 0 {
			return false
		}
		t.ids = Snapshot(items)
	default:
		if _, fresh := CountNew(items, ScalarMark{At: t.scalar}); fresh != 0 {
			return false
		}
		t.advanceScalarLocked(now)
	}
	return true
}

// AdvanceScalar replaces the scalar watermark, clamped so it never moves
// backwards within a session.
func (t *Tracker) AdvanceScalar(ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceScalarLocked(ts)
}

// AdvanceKeyed replaces one sub-key's watermark entry, clamped monotonic.
func (t *Tracker) AdvanceKeyed(subKey string, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceKeyedLocked(subKey, ts)
}

// AdvanceIdentitySet replaces the whole identifier set. Replacement, never a
// union: identifiers that disappeared upstream must not linger as seen.
func (t *Tracker) AdvanceIdentitySet(ids IdentityMark) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids = ids.clone()
}

func (t *Tracker) advanceScalarLocked(ts time.Time) {
	if ts.After(t.scalar) {
		t.scalar = ts
	}
}

func (t *Tracker) advanceKeyedLocked(subKey string, ts time.Time) {
	if ts.After(t.keyed[subKey]) {
		next := t.keyed.clone()
		next[subKey] = ts
		t.keyed = next
	}
}

func (t *Tracker) commitKeyedLocked(subKey string) {
	if ts, ok := t.pendingKeyed[subKey]; ok {
		t.advanceKeyedLocked(subKey, ts)
		delete(t.pendingKeyed, subKey)
	}
}
