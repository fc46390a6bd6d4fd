package exchange

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	mu    sync.Mutex
	calls int
	value decimal.Decimal
	err   error
}

func (s *countingSource) Rate(_ context.Context, from, to string) (Rate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return Rate{}, s.err
	}
	return Rate{From: from, To: to, Value: s.value, Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)}, nil
}

func TestCachedSource_Rate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("uses cache for same pair", func(t *testing.T) {
		t.Parallel()
		upstream := &countingSource{value: decimal.RequireFromString("1.35")}
		cached := NewCachedSource(upstream, time.Hour)

		_, err := cached.Rate(ctx, "USD", "SGD")
		require.NoError(t, err)
		got, err := cached.Rate(ctx, " usd ", "sgd")
		require.NoError(t, err)
		require.Equal(t, 1, upstream.calls)
		require.True(t, got.Value.Equal(decimal.RequireFromString("1.35")))
	})

	t.Run("refreshes after ttl", func(t *testing.T) {
		t.Parallel()
		upstream := &countingSource{value: decimal.RequireFromString("1.35")}
		cached := NewCachedSource(upstream, time.Minute)
		now := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
		cached.now = func() time.Time { return now }

		_, err := cached.Rate(ctx, "USD", "SGD")
		require.NoError(t, err)
		now = now.Add(2 * time.Minute)
		_, err = cached.Rate(ctx, "USD", "SGD")
		require.NoError(t, err)
		require.Equal(t, 2, upstream.calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()
		upstream := &countingSource{err: errors.New("unavailable")}
		cached := NewCachedSource(upstream, time.Hour)

		_, err := cached.Rate(ctx, "USD", "SGD")
		require.Error(t, err)
		_, err = cached.Rate(ctx, "USD", "SGD")
		require.Error(t, err)
		require.Equal(t, 2, upstream.calls)
	})

	t.Run("requires inner source", func(t *testing.T) {
		t.Parallel()
		_, err := NewCachedSource(nil, 0).Rate(ctx, "USD", "SGD")
		require.Error(t, err)
	})
}
