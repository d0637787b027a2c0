// Package progress carries round and fetch lifecycle events from the
// orchestration path to observability sinks. Events are batched on a
// background goroutine and fanned out to pluggable sinks; emitting never
// blocks the fetch path.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRoundStart Stage = "ROUND_START"
	StageRoundDone  Stage = "ROUND_DONE"
	StageFetchDone  Stage = "FETCH_DONE"
)

// Result is the coarse outcome of a source fetch.
type Result string

// Fetch results tracked per source.
const (
	ResultOK    Result = "ok"
	ResultEmpty Result = "empty"
	ResultError Result = "error"
)

// Event captures a single component of round progress.
type Event struct {
	// RoundID identifies one orchestrator round in 16-byte UUID form.
	RoundID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Source scopes fetch events to a source key.
	Source string
	// Items is the item count delivered by a fetch, or total for a round.
	Items int
	// Attempts counts adapter invocations for the fetch, retries included.
	Attempts int
	// Sources counts the sources covered by a round event.
	Sources int
	// Result classifies a completed fetch.
	Result Result
	// Dur captures execution latency for fetches and rounds.
	Dur time.Duration
	// Note carries low-volume debug context, typically error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RoundID == [16]byte{} {
		return errors.New("round id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRoundStart, StageRoundDone:
	case StageFetchDone:
		if e.Source == "" {
			return errors.New("fetch done requires a source")
		}
		if e.Result == "" {
			return errors.New("fetch done requires a result")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RoundUUID converts the binary round ID to uuid.UUID.
func (e Event) RoundUUID() uuid.UUID {
	return uuid.UUID(e.RoundID)
}

// NewRoundID allocates a fresh round ID in the Event form.
func NewRoundID() [16]byte {
	id := uuid.New()
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// ClassifyResult maps a fetch outcome to its Result bucket.
func ClassifyResult(itemCount int, err error) Result {
	switch {
	case err != nil:
		return ResultError
	case itemCount == 0:
		return ResultEmpty
	default:
		return ResultOK
	}
}
