// Package monitor holds the long-lived session state: the source catalog,
// the latest fetched items per source, the seen-state trackers, and the
// adaptive concurrency cap feeding the fetch orchestrator.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feedwatch/feedwatch/internal/adaptive"
	"github.com/feedwatch/feedwatch/internal/aggregate"
	"github.com/feedwatch/feedwatch/internal/feed"
	"github.com/feedwatch/feedwatch/internal/metrics"
	"github.com/feedwatch/feedwatch/internal/seen"
)

var (
	// ErrUnknownSource reports a key absent from the catalog.
	ErrUnknownSource = errors.New("unknown source")
	// ErrSubKeyRequired reports an open on a keyed source without a sub-key.
	ErrSubKeyRequired = errors.New("sub-key required")
)

// RoundRunner runs one fetch round over a set of sources.
type RoundRunner interface {
	RunRound(ctx context.Context, sources map[string]feed.Descriptor, cap int) map[string]feed.RoundResult
}

// Config wires a Session's collaborators.
type Config struct {
	Sources    []feed.Descriptor
	Runner     RoundRunner
	Controller *adaptive.Controller
	Sampler    adaptive.MemorySampler
	Clock      feed.Clock
	Logger     *zap.Logger
	StartCap   int
	BatchSize  int
}

// Session owns all per-source state for one running monitor instance.
// All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	sources map[string]feed.Descriptor
	order   []string

	items     map[string][]feed.Item
	lastFetch map[string]time.Time
	lastErr   map[string]error
	attempts  map[string]int
	trackers  map[string]*seen.Tracker

	capacity   int
	runner     RoundRunner
	controller *adaptive.Controller
	sampler    adaptive.MemorySampler
	clock      feed.Clock
	logger     *zap.Logger
	batchSize  int
	booted     bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// NewSession builds a Session. Every descriptor gets a tracker matching
// its kind.
func NewSession(cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.StartCap < 1 {
		cfg.StartCap = adaptive.DefaultStart
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 10
	}
	s := &Session{
		sources:    make(map[string]feed.Descriptor, len(cfg.Sources)),
		order:      make([]string, 0, len(cfg.Sources)),
		items:      make(map[string][]feed.Item),
		lastFetch:  make(map[string]time.Time),
		lastErr:    make(map[string]error),
		attempts:   make(map[string]int),
		trackers:   make(map[string]*seen.Tracker, len(cfg.Sources)),
		capacity:   cfg.StartCap,
		runner:     cfg.Runner,
		controller: cfg.Controller,
		sampler:    cfg.Sampler,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		batchSize:  cfg.BatchSize,
	}
	for _, desc := range cfg.Sources {
		s.sources[desc.Key] = desc
		s.order = append(s.order, desc.Key)
		s.trackers[desc.Key] = seen.NewTracker(desc.Kind)
	}
	metrics.SetCatalogSize(len(s.order))
	metrics.SetConcurrencyCap(s.capacity)
	return s
}

// View is a read snapshot of one source's state. NewFlags aligns with
// Items by index and marks which of them the tracker has not seen yet.
type View struct {
	Descriptor feed.Descriptor
	Items      []feed.Item
	NewFlags   []bool
	LastFetch  time.Time
	LastError  string
	Attempts   int
	Summary    aggregate.Summary
	Open       bool
	OpenSubKey string
}

// RefreshAll runs one round over every source. Used at boot so the first
// render never waits on the cadence schedule.
func (s *Session) RefreshAll(ctx context.Context) {
	s.mu.Lock()
	targets := make(map[string]feed.Descriptor, len(s.sources))
	for k, d := range s.sources {
		targets[k] = d
	}
	cap := s.capacity
	s.booted = true
	s.mu.Unlock()

	results := s.runner.RunRound(ctx, targets, cap)
	s.apply(results)
	s.adjustCapacity()
}

// RefreshDue runs one round over the sources whose cadence group is due,
// stalest first, bounded by the batch size. It returns the keys refreshed.
func (s *Session) RefreshDue(ctx context.Context) []string {
	s.mu.Lock()
	if !s.booted {
		s.mu.Unlock()
		s.RefreshAll(ctx)
		return s.Keys()
	}
	now := s.clock.Now()
	due := dueSources(s.sources, s.lastFetch, now, s.batchSize)
	targets := make(map[string]feed.Descriptor, len(due))
	for _, k := range due {
		targets[k] = s.sources[k]
	}
	cap := s.capacity
	s.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}
	results := s.runner.RunRound(ctx, targets, cap)
	s.apply(results)
	s.adjustCapacity()
	return due
}

// apply folds round results into session state. Each refreshed source's
// items are replaced with what the round produced, so a failed source
// shows zero items (and its recorded error) until a later round succeeds.
// Successful sources may auto-advance an idle tracker when nothing new
// arrived.
func (s *Session) apply(results map[string]feed.RoundResult) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, res := range results {
		s.lastFetch[key] = now
		s.attempts[key] = res.Attempts
		if res.Err != nil {
			s.lastErr[key] = res.Err
			s.items[key] = nil
			s.logger.Warn("source refresh failed",
				zap.String("source", key),
				zap.Int("attempts", res.Attempts),
				zap.Error(res.Err))
			continue
		}
		s.lastErr[key] = nil
		s.items[key] = res.Items
		tr := s.trackers[key]
		if tr == nil {
			continue
		}
		if advanced := tr.OnRefresh(res.Items, now); advanced {
			s.logger.Debug("idle auto-advance", zap.String("source", key))
		}
	}
}

// adjustCapacity samples resident memory and moves the cap one step.
func (s *Session) adjustCapacity() {
	if s.controller == nil || s.sampler == nil {
		return
	}
	rss, err := s.sampler.ResidentBytes()
	if err != nil {
		s.logger.Warn("memory sample failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	prev := s.capacity
	s.capacity = s.controller.NextCap(prev, rss)
	cur := s.capacity
	s.mu.Unlock()
	metrics.SetResidentBytes(rss)
	metrics.SetConcurrencyCap(cur)
	if cur != prev {
		s.logger.Info("concurrency cap adjusted",
			zap.Int("from", prev),
			zap.Int("to", cur),
			zap.Uint64("rss_bytes", rss))
	}
}

// Capacity reports the current concurrency cap.
func (s *Session) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity
}

// Keys lists the source keys in catalog order.
func (s *Session) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// View snapshots one source.
func (s *Session) View(key string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc, ok := s.sources[key]
	if !ok {
		return View{}, fmt.Errorf("%w: %q", ErrUnknownSource, key)
	}
	return s.viewLocked(key, desc), nil
}

// Views snapshots every source in catalog order.
func (s *Session) Views() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]View, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.viewLocked(key, s.sources[key]))
	}
	return out
}

func (s *Session) viewLocked(key string, desc feed.Descriptor) View {
	tr := s.trackers[key]
	items := s.items[key]
	v := View{
		Descriptor: desc,
		Items:      items,
		LastFetch:  s.lastFetch[key],
		Attempts:   s.attempts[key],
	}
	if err := s.lastErr[key]; err != nil {
		v.LastError = err.Error()
	}
	if tr != nil {
		mark := tr.Mark()
		v.Summary = aggregate.Summarize(items, mark)
		v.NewFlags = aggregate.FlagNew(items, mark)
		v.Open, v.OpenSubKey = tr.IsOpen()
	}
	return v
}

// Open marks a source (or one sub-key of a keyed source) as being viewed.
// The pending watermark captures the open time, not the eventual close time.
func (s *Session) Open(key, subKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.trackers[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, key)
	}
	if tr.Kind() == feed.KindKeyed && subKey == "" {
		return fmt.Errorf("%w: source %q is keyed", ErrSubKeyRequired, key)
	}
	tr.Open(subKey, s.clock.Now())
	return nil
}

// Close commits the pending watermark captured at open time.
func (s *Session) Close(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.trackers[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, key)
	}
	tr.Close(s.items[key])
	return nil
}

// MarkAllSeen commits the current instant for a source, clearing all
// new-item counts immediately.
func (s *Session) MarkAllSeen(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.trackers[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, key)
	}
	tr.MarkAllSeen(s.items[key], s.clock.Now())
	return nil
}
