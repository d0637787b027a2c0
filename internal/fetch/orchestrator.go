// Package fetch implements the round orchestrator: a bounded-concurrency
// fan-out over source adapters with per-source timeout, retry with backoff,
// and failure isolation. One broken source yields an empty result and never
// aborts the round.
package fetch

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/feedwatch/feedwatch/internal/feed"
	"github.com/feedwatch/feedwatch/internal/progress"
)

var tracer = otel.Tracer("feedwatch/fetch")

// DefaultTimeout bounds a single adapter call unless the descriptor
// overrides it.
const DefaultTimeout = 30 * time.Second

// AdapterRegistry resolves the adapter for a descriptor.
type AdapterRegistry interface {
	Resolve(desc feed.Descriptor) (feed.Adapter, error)
}

// Orchestrator fans out one round of fetches across sources.
type Orchestrator struct {
	registry AdapterRegistry
	retry    *feed.RetryPolicy
	timeout  time.Duration
	limiter  *HostLimiter
	emitter  progress.Emitter
	logger   *zap.Logger
	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// Config carries the orchestrator tunables.
type Config struct {
	Timeout time.Duration
	Retry   *feed.RetryPolicy
	Limiter *HostLimiter
	Emitter progress.Emitter
	Logger  *zap.Logger
}

// New constructs an Orchestrator.
func New(registry AdapterRegistry, cfg Config) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry == nil {
		cfg.Retry = feed.NewRetryPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Orchestrator{
		registry: registry,
		retry:    cfg.Retry,
		timeout:  cfg.Timeout,
		limiter:  cfg.Limiter,
		emitter:  cfg.Emitter,
		logger:   cfg.Logger,
		sleep:    sleepCtx,
	}
}

// RunRound fetches every source concurrently, bounded by cap in-flight
// adapter calls. The returned map covers every requested key; failed sources
// carry empty items plus the recorded error. The round does not mutate any
// seen-state.
func (o *Orchestrator) RunRound(
	ctx context.Context,
	sources map[string]feed.Descriptor,
	cap int,
) map[string]feed.RoundResult {
	results := make(map[string]feed.RoundResult, len(sources))
	if len(sources) == 0 {
		return results
	}
	if cap < 1 {
		cap = 1
	}

	ctx, span := tracer.Start(ctx, "fetch.round")
	span.SetAttributes(attribute.Int("sources", len(sources)), attribute.Int("cap", cap))
	defer span.End()

	roundID := progress.NewRoundID()
	start := time.Now()
	o.emit(progress.Event{
		RoundID: roundID,
		TS:      start.UTC(),
		Stage:   progress.StageRoundStart,
		Sources: len(sources),
	})

	sem := semaphore.NewWeighted(int64(cap))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for key, desc := range sources {
		wg.Add(1)
		go func(key string, desc feed.Descriptor) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				results[key] = feed.RoundResult{Err: err}
				mu.Unlock()
				return
			}
			defer sem.Release(1)
			res := o.fetchOne(ctx, key, desc, roundID)
			mu.Lock()
			results[key] = res
			mu.Unlock()
		}(key, desc)
	}
	wg.Wait()

	total := 0
	for _, res := range results {
		total += len(res.Items)
	}
	o.emit(progress.Event{
		RoundID: roundID,
		TS:      time.Now().UTC(),
		Stage:   progress.StageRoundDone,
		Sources: len(sources),
		Items:   total,
		Dur:     time.Since(start),
	})
	return results
}

// fetchOne runs one source through the retry budget. Retries are local to
// this source and do not affect other sources' schedules.
func (o *Orchestrator) fetchOne(
	ctx context.Context,
	key string,
	desc feed.Descriptor,
	roundID [16]byte,
) feed.RoundResult {
	ctx, span := tracer.Start(ctx, "fetch.source")
	span.SetAttributes(attribute.String("source", key))
	defer span.End()

	start := time.Now()
	adapter, err := o.registry.Resolve(desc)
	if err != nil {
		o.logger.Warn("no adapter for source", zap.String("source", key), zap.Error(err))
		return feed.RoundResult{Err: err, Duration: time.Since(start)}
	}

	timeout := o.timeout
	if desc.Timeout > 0 {
		timeout = desc.Timeout
	}

	var (
		items   []feed.Item
		lastErr error
	)
	attempt := 0
	for {
		attempt++
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx, desc.URL); err != nil {
				lastErr = err
				break
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		items, lastErr = adapter.Fetch(callCtx, desc)
		cancel()
		if lastErr == nil {
			items = feed.AttachTimestamps(items)
			break
		}
		if !o.retry.ShouldRetry(lastErr, attempt) {
			break
		}
		o.logger.Debug("retrying source fetch",
			zap.String("source", key),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
		if err := o.sleep(ctx, o.retry.Backoff(attempt)); err != nil {
			break
		}
	}

	dur := time.Since(start)
	if lastErr != nil {
		span.RecordError(lastErr)
		o.logger.Warn("source fetch failed",
			zap.String("source", key),
			zap.Int("attempts", attempt),
			zap.Error(lastErr),
		)
		items = nil
	}
	o.emit(progress.Event{
		RoundID:  roundID,
		TS:       time.Now().UTC(),
		Stage:    progress.StageFetchDone,
		Source:   key,
		Items:    len(items),
		Attempts: attempt,
		Result:   progress.ClassifyResult(len(items), lastErr),
		Dur:      dur,
		Note:     errText(lastErr),
	})
	return feed.RoundResult{Items: items, Err: lastErr, Attempts: attempt, Duration: dur}
}

func (o *Orchestrator) emit(evt progress.Event) {
	if o.emitter != nil {
		o.emitter.Emit(evt)
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
