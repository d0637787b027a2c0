package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHostLimiter_UnlimitedWhenRPSZero(t *testing.T) {
	t.Parallel()

	l := NewHostLimiter(LimiterConfig{})
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "https://example.com/feed"))
	}
	require.Less(t, time.Since(start), time.Second)
}

func TestHostLimiter_SeparateBucketsPerHost(t *testing.T) {
	t.Parallel()

	l := NewHostLimiter(LimiterConfig{DefaultRPS: 1, DefaultBurst: 1})

	// One token per host available immediately.
	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "https://a.example.com/x"))
	require.NoError(t, l.Wait(context.Background(), "https://b.example.com/y"))
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestHostLimiter_BlocksSameHost(t *testing.T) {
	t.Parallel()

	l := NewHostLimiter(LimiterConfig{DefaultRPS: 0.1, DefaultBurst: 1})
	require.NoError(t, l.Wait(context.Background(), "https://a.example.com/x"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "https://a.example.com/y")
	require.Error(t, err, "second request within the window must wait past the deadline")
}

func TestHostLimiter_UnparseableURLStillLimited(t *testing.T) {
	t.Parallel()

	l := NewHostLimiter(LimiterConfig{DefaultRPS: 100, DefaultBurst: 1})
	require.NoError(t, l.Wait(context.Background(), "::not a url::"))
}
