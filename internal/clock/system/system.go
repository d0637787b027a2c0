// Package system provides the wall clock the monitor session runs on.
package system

import (
	"time"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// Clock reads the system wall clock, normalized to UTC so cadence math
// and watermark comparisons never mix zones with feed timestamps.
type Clock struct{}

var _ feed.Clock = Clock{}

// New returns the wall clock.
func New() Clock {
	return Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
