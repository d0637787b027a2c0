package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feedwatch/feedwatch/internal/adaptive"
	"github.com/feedwatch/feedwatch/internal/feed"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeRunner struct {
	mu      sync.Mutex
	rounds  []map[string]feed.Descriptor
	caps    []int
	results map[string]feed.RoundResult
}

func (r *fakeRunner) RunRound(_ context.Context, sources map[string]feed.Descriptor, cap int) map[string]feed.RoundResult {
	r.mu.Lock()
	r.rounds = append(r.rounds, sources)
	r.caps = append(r.caps, cap)
	r.mu.Unlock()
	out := make(map[string]feed.RoundResult, len(sources))
	for key := range sources {
		out[key] = r.results[key]
	}
	return out
}

type fixedSampler struct{ rss uint64 }

func (s fixedSampler) ResidentBytes() (uint64, error) { return s.rss, nil }

func testSources() []feed.Descriptor {
	return []feed.Descriptor{
		{Key: "nws", Kind: feed.KindKeyed, Type: "alerts_api", URL: "https://example.com/a", Group: "g1"},
		{Key: "jma", Kind: feed.KindScalar, Type: "bulletin", URL: "https://example.com/b", Group: "g2_odd"},
	}
}

func item(title string, sec int64) feed.Item {
	return feed.Item{Title: title, Timestamp: time.Unix(sec, 0).UTC()}
}

func newTestSession(runner *fakeRunner, clk *fakeClock) *Session {
	return NewSession(Config{
		Sources:   testSources(),
		Runner:    runner,
		Clock:     clk,
		StartCap:  20,
		BatchSize: 10,
	})
}

func TestSession_RefreshAllCoversCatalog(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]feed.RoundResult{
		"nws": {Items: []feed.Item{item("flood", 100)}, Attempts: 1},
		"jma": {Items: []feed.Item{item("typhoon", 200)}, Attempts: 1},
	}}
	clk := &fakeClock{now: time.Unix(1000, 0).UTC()}
	s := newTestSession(runner, clk)

	s.RefreshAll(context.Background())

	require.Len(t, runner.rounds, 1)
	require.Len(t, runner.rounds[0], 2)
	require.Equal(t, 20, runner.caps[0])

	v, err := s.View("nws")
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	require.Equal(t, 1, v.Summary.New)
	require.Equal(t, clk.Now(), v.LastFetch)
}

func TestSession_FailedSourceYieldsZeroItems(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]feed.RoundResult{
		"nws": {Items: []feed.Item{item("flood", 100)}},
		"jma": {Items: []feed.Item{item("typhoon", 200)}},
	}}
	clk := &fakeClock{now: time.Unix(1000, 0).UTC()}
	s := newTestSession(runner, clk)
	s.RefreshAll(context.Background())

	runner.results["jma"] = feed.RoundResult{Err: errors.New("timeout"), Attempts: 3}
	s.RefreshAll(context.Background())

	// A failed round replaces the previous items, so the source reads as
	// empty until a later round succeeds; the error and attempt count stay
	// visible.
	v, err := s.View("jma")
	require.NoError(t, err)
	require.Empty(t, v.Items)
	require.Zero(t, v.Summary.Total)
	require.Zero(t, v.Summary.New)
	require.Equal(t, "timeout", v.LastError)
	require.Equal(t, 3, v.Attempts)

	// The healthy source is untouched by its neighbor's failure.
	nv, err := s.View("nws")
	require.NoError(t, err)
	require.Len(t, nv.Items, 1)
	require.Empty(t, nv.LastError)
}

func TestSession_ViewFlagsNewItems(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]feed.RoundResult{
		"jma": {Items: []feed.Item{item("typhoon", 900)}},
	}}
	clk := &fakeClock{now: time.Unix(1000, 0).UTC()}
	s := newTestSession(runner, clk)
	s.RefreshAll(context.Background())

	v, err := s.View("jma")
	require.NoError(t, err)
	require.Equal(t, []bool{true}, v.NewFlags)

	require.NoError(t, s.MarkAllSeen("jma"))
	v, _ = s.View("jma")
	require.Equal(t, []bool{false}, v.NewFlags)
}

func TestSession_OpenCloseCommitsOpenTime(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]feed.RoundResult{
		"jma": {Items: []feed.Item{item("typhoon", 900)}},
	}}
	clk := &fakeClock{now: time.Unix(1000, 0).UTC()}
	s := newTestSession(runner, clk)
	s.RefreshAll(context.Background())

	require.NoError(t, s.Open("jma", ""))
	v, _ := s.View("jma")
	require.True(t, v.Open)
	require.Equal(t, 1, v.Summary.New, "open does not commit")

	clk.advance(time.Minute)
	require.NoError(t, s.Close("jma"))
	v, _ = s.View("jma")
	require.False(t, v.Open)
	require.Zero(t, v.Summary.New)
}

func TestSession_OpenKeyedRequiresSubKey(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]feed.RoundResult{}}
	s := newTestSession(runner, &fakeClock{now: time.Unix(1000, 0).UTC()})

	err := s.Open("nws", "")
	require.ErrorIs(t, err, ErrSubKeyRequired)
	require.NoError(t, s.Open("nws", "Texas|Flood Warning"))
}

func TestSession_UnknownSource(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]feed.RoundResult{}}
	s := newTestSession(runner, &fakeClock{now: time.Unix(1000, 0).UTC()})

	_, err := s.View("nope")
	require.ErrorIs(t, err, ErrUnknownSource)
	require.ErrorIs(t, s.Close("nope"), ErrUnknownSource)
	require.ErrorIs(t, s.MarkAllSeen("nope"), ErrUnknownSource)
}

func TestSession_MarkAllSeenClearsCounts(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]feed.RoundResult{
		"nws": {Items: []feed.Item{
			{Title: "a", Region: "Texas", Bucket: "Flood Warning", Timestamp: time.Unix(900, 0).UTC()},
			{Title: "b", Region: "Ohio", Bucket: "Tornado Warning", Timestamp: time.Unix(950, 0).UTC()},
		}},
	}}
	clk := &fakeClock{now: time.Unix(1000, 0).UTC()}
	s := newTestSession(runner, clk)
	s.RefreshAll(context.Background())

	v, _ := s.View("nws")
	require.Equal(t, 2, v.Summary.New)

	require.NoError(t, s.MarkAllSeen("nws"))
	v, _ = s.View("nws")
	require.Zero(t, v.Summary.New)
}

func TestSession_IdleRefreshAutoAdvancesOpenSource(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]feed.RoundResult{
		"jma": {Items: []feed.Item{item("typhoon", 900)}},
	}}
	clk := &fakeClock{now: time.Unix(1000, 0).UTC()}
	s := newTestSession(runner, clk)
	s.RefreshAll(context.Background())

	require.NoError(t, s.Open("jma", ""))
	require.NoError(t, s.Close("jma"))
	require.NoError(t, s.Open("jma", ""))

	// Background refresh with nothing new while the view is open.
	clk.advance(2 * time.Minute)
	s.RefreshAll(context.Background())

	// New arrivals after the auto-advance point still count.
	runner.results["jma"] = feed.RoundResult{Items: []feed.Item{
		item("typhoon", 900),
		item("heavy rain", clk.Now().Unix()+30),
	}}
	clk.advance(time.Minute)
	s.RefreshAll(context.Background())

	v, _ := s.View("jma")
	require.Equal(t, 1, v.Summary.New)
}

func TestSession_RefreshDueHonorsScheduler(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]feed.RoundResult{
		"nws": {}, "jma": {},
	}}
	// Minute 1 of the cycle: g1 due, g2_odd not.
	clk := &fakeClock{now: time.Unix(60, 0).UTC()}
	s := newTestSession(runner, clk)
	s.RefreshAll(context.Background())

	clk.advance(4 * time.Minute) // minute 1 again, both past spacing
	clk.advance(time.Minute)     // minute 2: g2_odd due too

	refreshed := s.RefreshDue(context.Background())
	require.ElementsMatch(t, []string{"nws", "jma"}, refreshed)

	// Immediately after, spacing blocks everything.
	require.Empty(t, s.RefreshDue(context.Background()))
}

func TestSession_FirstRefreshDueBoots(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]feed.RoundResult{"nws": {}, "jma": {}}}
	clk := &fakeClock{now: time.Unix(60, 0).UTC()}
	s := newTestSession(runner, clk)

	refreshed := s.RefreshDue(context.Background())
	require.ElementsMatch(t, []string{"nws", "jma"}, refreshed)
	require.Len(t, runner.rounds, 1)
	require.Len(t, runner.rounds[0], 2, "cold boot fetches the whole catalog")
}

func TestSession_CapacityAdjustsFromMemory(t *testing.T) {
	t.Parallel()

	budget := uint64(1 << 30)
	runner := &fakeRunner{results: map[string]feed.RoundResult{"nws": {}, "jma": {}}}
	s := NewSession(Config{
		Sources:    testSources(),
		Runner:     runner,
		Controller: adaptive.NewController(budget),
		Sampler:    fixedSampler{rss: uint64(float64(budget) * 0.95)},
		Clock:      &fakeClock{now: time.Unix(1000, 0).UTC()},
		StartCap:   20,
	})

	s.RefreshAll(context.Background())
	require.Equal(t, 15, s.Capacity())
}
