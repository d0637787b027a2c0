// Package seen tracks per-source watermarks and implements the deferred
// commit protocol: watermarks only advance when a view is explicitly closed,
// when everything is already seen on a background refresh, or when the user
// marks a whole source as seen.
package seen

import (
	"time"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// Mark is the watermark value for one source. The three shapes share the
// IsNew capability so counting code never switches on the source kind.
type Mark interface {
	// IsNew reports whether the item is new relative to this watermark.
	IsNew(it feed.Item) bool
}

// ScalarMark is a single last-seen timestamp. An item is new when its
// timestamp is strictly after the mark.
type ScalarMark struct {
	At time.Time
}

// IsNew implements Mark.
func (m ScalarMark) IsNew(it feed.Item) bool {
	return it.Timestamp.After(m.At)
}

// KeyedMark maps a sub-key to its last-seen timestamp. A sub-key absent from
// the map is treated as the zero time, so every timestamped item under it is
// new.
type KeyedMark map[string]time.Time

// IsNew implements Mark.
func (m KeyedMark) IsNew(it feed.Item) bool {
	return it.Timestamp.After(m[it.SubKey()])
}

// clone returns an independent copy so readers never observe a map being
// mutated under them.
func (m KeyedMark) clone() KeyedMark {
	out := make(KeyedMark, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// IdentityMark is a set of stable item identifiers. An item is new when its
// identifier is absent from the set.
type IdentityMark map[string]struct{}

// IsNew implements Mark.
func (m IdentityMark) IsNew(it feed.Item) bool {
	_, ok := m[it.ID]
	return !ok
}

func (m IdentityMark) clone() IdentityMark {
	out := make(IdentityMark, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

// Snapshot builds an IdentityMark from the identifiers of every given item.
func Snapshot(items []feed.Item) IdentityMark {
	out := make(IdentityMark, len(items))
	for _, it := range items {
		out[it.ID] = struct{}{}
	}
	return out
}

// CountNew returns the total item count and the count of items that are new
// under the given mark.
func CountNew(items []feed.Item, m Mark) (total, fresh int) {
	total = len(items)
	for _, it := range items {
		if m.IsNew(it) {
			fresh++
		}
	}
	return total, fresh
}

// CountNewByKey breaks keyed counts down per sub-key. Only sub-keys present
// in the current item set appear in the result; stale watermark entries with
// no current items contribute nothing.
func CountNewByKey(items []feed.Item, m KeyedMark) map[string]Counts {
	out := make(map[string]Counts)
	for _, it := range items {
		key := it.SubKey()
		c := out[key]
		c.Total++
		if it.Timestamp.After(m[key]) {
			c.New++
		}
		out[key] = c
	}
	return out
}

// Counts pairs a total with its new subset.
type Counts struct {
	Total int `json:"total"`
	New   int `json:"new"`
}
