package monitor

import (
	"sort"
	"strings"
	"time"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// Cadence groups stagger source refreshes across a repeating four minute
// cycle so no single tick fetches everything:
//
//	g1      every minute
//	g2_even minutes 2 and 4 of the cycle
//	g2_odd  minutes 1 and 3 of the cycle
//	g4_1..4 once per cycle, on that minute
//
// Unknown or empty groups behave like g1.

// minSpacing is the shortest allowed gap between refreshes of the same
// source, per group family. A one second tolerance absorbs ticker jitter.
var minSpacing = map[string]time.Duration{
	"g1": 60 * time.Second,
	"g2": 120 * time.Second,
	"g4": 240 * time.Second,
}

const spacingTolerance = time.Second

// groupDue reports whether a cadence group fires on the given instant.
func groupDue(group string, now time.Time) bool {
	cycleMinute := int(now.Unix()/60) % 4 // 0..3
	switch group {
	case "g2_even":
		return cycleMinute == 1 || cycleMinute == 3
	case "g2_odd":
		return cycleMinute == 0 || cycleMinute == 2
	case "g4_1":
		return cycleMinute == 0
	case "g4_2":
		return cycleMinute == 1
	case "g4_3":
		return cycleMinute == 2
	case "g4_4":
		return cycleMinute == 3
	default:
		return true
	}
}

// groupSpacing returns the minimum refresh gap for a group, tolerance
// already subtracted.
func groupSpacing(group string) time.Duration {
	family := group
	if i := strings.IndexByte(group, '_'); i > 0 {
		family = group[:i]
	}
	gap, ok := minSpacing[family]
	if !ok {
		gap = minSpacing["g1"]
	}
	return gap - spacingTolerance
}

// dueSources selects the sources eligible for refresh at now: their group
// fires on this minute and enough time has passed since their last fetch.
// Selection is stalest first, capped at batch.
func dueSources(
	sources map[string]feed.Descriptor,
	lastFetch map[string]time.Time,
	now time.Time,
	batch int,
) []string {
	type cand struct {
		key  string
		last time.Time
	}
	var due []cand
	for key, desc := range sources {
		if !groupDue(desc.Group, now) {
			continue
		}
		last, fetched := lastFetch[key]
		if fetched && now.Sub(last) < groupSpacing(desc.Group) {
			continue
		}
		due = append(due, cand{key: key, last: last})
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].last.Equal(due[j].last) {
			return due[i].last.Before(due[j].last)
		}
		return due[i].key < due[j].key
	})
	if batch > 0 && len(due) > batch {
		due = due[:batch]
	}
	out := make([]string, len(due))
	for i, c := range due {
		out[i] = c.key
	}
	return out
}
