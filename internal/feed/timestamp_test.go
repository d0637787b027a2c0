package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want time.Time
	}{
		{
			name: "rfc3339",
			in:   "2026-03-14T09:30:00Z",
			want: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "rfc1123z",
			in:   "Sat, 14 Mar 2026 09:30:00 +0000",
			want: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "bare date",
			in:   "2026-03-14",
			want: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "single digit day",
			in:   "Mon, 2 Mar 2026 09:30:00 +0000",
			want: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ParseTimestamp(tc.in)
			require.True(t, got.Equal(tc.want), "got %v want %v", got, tc.want)
		})
	}
}

func TestParseTimestamp_GarbageIsZero(t *testing.T) {
	t.Parallel()

	require.True(t, ParseTimestamp("").IsZero())
	require.True(t, ParseTimestamp("not a date").IsZero())
	require.True(t, ParseTimestamp("  ").IsZero())
}

func TestAttachTimestamps(t *testing.T) {
	t.Parallel()

	in := []Item{
		{Title: "a", Published: "2026-03-14T09:30:00Z"},
		{Title: "b", Published: "garbage"},
		{Title: "c", Timestamp: time.Unix(500, 0)},
	}
	out := AttachTimestamps(in)

	require.Equal(t, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC), out[0].Timestamp)
	require.True(t, out[1].Timestamp.IsZero())
	require.Equal(t, time.Unix(500, 0), out[2].Timestamp)
	// Input untouched.
	require.True(t, in[0].Timestamp.IsZero())
}

func TestSortNewest(t *testing.T) {
	t.Parallel()

	items := []Item{
		{Title: "old", Timestamp: time.Unix(100, 0)},
		{Title: "undated"},
		{Title: "new", Timestamp: time.Unix(300, 0)},
		{Title: "mid", Timestamp: time.Unix(200, 0)},
	}
	got := SortNewest(items)

	require.Equal(t, []string{"new", "mid", "old", "undated"},
		[]string{got[0].Title, got[1].Title, got[2].Title, got[3].Title})
	// Original order preserved.
	require.Equal(t, "old", items[0].Title)
}

func TestItemSubKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Texas|Flood Warning", Item{Region: "Texas", Bucket: "Flood Warning"}.SubKey())
	require.Equal(t, "Texas", Item{Region: "Texas"}.SubKey())
	require.Equal(t, "Flood Warning", Item{Bucket: "Flood Warning"}.SubKey())
	require.Equal(t, "Unknown", Item{}.SubKey())
	require.Equal(t, "Texas", Item{Region: " Texas "}.SubKey())
}
