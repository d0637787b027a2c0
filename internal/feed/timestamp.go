package feed

import (
	"sort"
	"strings"
	"time"
)

// Layouts tried in order by ParseTimestamp. Feeds in the wild mix RFC3339,
// RFC1123 variants, and a handful of sloppy formats.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"January 2, 2006",
	"2006-01-02",
}

// ParseTimestamp parses a published value into a time.Time. Unparseable or
// empty values return the zero time, which sorts as oldest possible.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// AttachTimestamps fills in Item.Timestamp from Published for every item that
// does not already carry one. It returns a new slice; the input is not
// mutated.
func AttachTimestamps(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		if it.Timestamp.IsZero() {
			it.Timestamp = ParseTimestamp(it.Published)
		}
		out[i] = it
	}
	return out
}

// SortNewest returns a copy of items ordered newest-first. Items without a
// timestamp sort last.
func SortNewest(items []Item) []Item {
	out := append([]Item(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
