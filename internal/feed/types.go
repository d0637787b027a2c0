package feed

import (
	"strings"
	"time"
)

// Kind selects both the adapter family and the watermark shape for a source.
type Kind string

// Source kinds persisted in configuration.
const (
	// KindScalar tracks one last-seen timestamp per source.
	KindScalar Kind = "scalar"
	// KindKeyed tracks one last-seen timestamp per sub-key (region|bucket).
	KindKeyed Kind = "keyed"
	// KindIdentity tracks a set of stable item identifiers. Used where items
	// recur with a mutable status instead of a monotonic timestamp.
	KindIdentity Kind = "identity"
)

// Valid reports whether k is a known source kind.
func (k Kind) Valid() bool {
	switch k {
	case KindScalar, KindKeyed, KindIdentity:
		return true
	}
	return false
}

// Descriptor captures the static configuration of one source. Descriptors are
// created once at load time and never mutated afterwards.
type Descriptor struct {
	Key     string            `json:"key" mapstructure:"key"`
	Kind    Kind              `json:"kind" mapstructure:"kind"`
	Type    string            `json:"type" mapstructure:"type"`
	Label   string            `json:"label" mapstructure:"label"`
	URL     string            `json:"url,omitempty" mapstructure:"url"`
	URLs    []string          `json:"urls,omitempty" mapstructure:"urls"`
	Regions []string          `json:"regions,omitempty" mapstructure:"regions"`
	Headers map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	// Timeout overrides the global per-source fetch timeout when positive.
	Timeout time.Duration `json:"timeout,omitempty" mapstructure:"timeout"`
	// Group is the refresh cadence group (g1, g2_even, g2_odd, g4_1..g4_4).
	// Empty means g1 (every scheduler tick).
	Group string `json:"group,omitempty" mapstructure:"group"`
}

// Item is the normalized record every adapter must produce.
type Item struct {
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	Link      string    `json:"link,omitempty"`
	Published string    `json:"published,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	// Region is the coarse grouping key (state, province, country).
	Region string `json:"region,omitempty"`
	// Bucket is the finer sub-grouping key (event or warning type).
	Bucket   string `json:"bucket,omitempty"`
	Severity string `json:"severity,omitempty"`
	// ID is the stable identifier used by identity-set watermarks.
	ID string `json:"id,omitempty"`
}

// SubKey returns the watermark sub-key for keyed sources: "Region|Bucket"
// when both are set, the non-empty one otherwise, "Unknown" when neither is.
func (it Item) SubKey() string {
	region := strings.TrimSpace(it.Region)
	bucket := strings.TrimSpace(it.Bucket)
	switch {
	case region != "" && bucket != "":
		return region + "|" + bucket
	case region != "":
		return region
	case bucket != "":
		return bucket
	default:
		return "Unknown"
	}
}

// RoundResult is the per-source outcome of one orchestrator round. A failed
// source carries empty Items plus the recorded error; the round itself never
// fails.
type RoundResult struct {
	Items    []Item
	Err      error
	Attempts int
	Duration time.Duration
}
