package seen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/feedwatch/feedwatch/internal/feed"
)

func TestScalarMark_StrictlyAfter(t *testing.T) {
	t.Parallel()

	m := ScalarMark{At: ts(100)}
	require.False(t, m.IsNew(feed.Item{Timestamp: ts(100)}))
	require.False(t, m.IsNew(feed.Item{Timestamp: ts(99)}))
	require.True(t, m.IsNew(feed.Item{Timestamp: ts(101)}))
}

func TestScalarMark_ZeroTimestampNeverNew(t *testing.T) {
	t.Parallel()

	// An unparseable item carries a zero timestamp and must not flap the
	// new count.
	m := ScalarMark{}
	require.False(t, m.IsNew(feed.Item{Title: "undated"}))
}

func TestCountNewByKey(t *testing.T) {
	t.Parallel()

	mark := KeyedMark{"Texas|Flood Warning": ts(100)}
	items := []feed.Item{
		{Region: "Texas", Bucket: "Flood Warning", Timestamp: ts(90)},
		{Region: "Texas", Bucket: "Flood Warning", Timestamp: ts(110)},
		{Region: "Ohio", Bucket: "Tornado Warning", Timestamp: ts(50)},
	}

	counts := CountNewByKey(items, mark)
	require.Len(t, counts, 2)
	require.Equal(t, Counts{Total: 2, New: 1}, counts["Texas|Flood Warning"])
	require.Equal(t, Counts{Total: 1, New: 1}, counts["Ohio|Tornado Warning"])
}

func TestCountNewByKey_StaleEntriesExcluded(t *testing.T) {
	t.Parallel()

	mark := KeyedMark{"Gone|Warning": ts(100)}
	counts := CountNewByKey([]feed.Item{{Region: "Here", Timestamp: ts(10)}}, mark)
	_, present := counts["Gone|Warning"]
	require.False(t, present)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	items := []feed.Item{{ID: "a"}, {ID: "b"}, {ID: "a"}}
	m := Snapshot(items)
	require.Len(t, m, 2)
	require.False(t, m.IsNew(feed.Item{ID: "a"}))
	require.True(t, m.IsNew(feed.Item{ID: "z"}))
}

func TestMarkClonesAreIndependent(t *testing.T) {
	t.Parallel()

	tr := NewTracker(feed.KindKeyed)
	tr.AdvanceKeyed("Wales", ts(100))
	mark := tr.Mark().(KeyedMark)

	tr.AdvanceKeyed("Wales", ts(200))
	require.Equal(t, ts(100), mark["Wales"], "reader snapshot must not change")
}
