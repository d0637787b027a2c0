// Package aggregate derives total/new counts from normalized items and a
// watermark. Everything here is pure: safe to call on every render pass.
package aggregate

import (
	"github.com/feedwatch/feedwatch/internal/feed"
	"github.com/feedwatch/feedwatch/internal/seen"
)

// Summary is the badge-level view of one source.
type Summary struct {
	Total int `json:"total"`
	New   int `json:"new"`
	// PerSubKey is populated for keyed sources only.
	PerSubKey map[string]seen.Counts `json:"per_sub_key,omitempty"`
}

// Summarize counts items against the mark. For keyed marks the per-sub-key
// breakdown is included and New is the aggregate across sub-keys present in
// the item set.
func Summarize(items []feed.Item, mark seen.Mark) Summary {
	s := Summary{}
	s.Total, s.New = seen.CountNew(items, mark)
	if keyed, ok := mark.(seen.KeyedMark); ok {
		s.PerSubKey = seen.CountNewByKey(items, keyed)
	}
	return s
}

// FlagNew returns one is-new flag per item, aligned by index.
func FlagNew(items []feed.Item, mark seen.Mark) []bool {
	flags := make([]bool, len(items))
	for i, it := range items {
		flags[i] = mark.IsNew(it)
	}
	return flags
}
