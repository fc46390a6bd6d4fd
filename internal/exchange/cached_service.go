package exchange

import (
	"context"
	"errors"
	"sync"
	"time"
)

const defaultCacheTTL = time.Hour

type cachedRate struct {
	rate      Rate
	expiresAt time.Time
}

// CachedSource wraps a RateSource with an in-memory TTL cache keyed by
// currency pair. Failed lookups are not cached.
type CachedSource struct {
	inner RateSource
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	rates map[string]cachedRate
}

// NewCachedSource returns a RateSource that caches rates for ttl.
func NewCachedSource(inner RateSource, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedSource{
		inner: inner,
		ttl:   ttl,
		now:   time.Now,
		rates: make(map[string]cachedRate),
	}
}

// Rate returns the cached rate for the pair, fetching it when missing or
// expired.
func (s *CachedSource) Rate(ctx context.Context, fromCurrency, toCurrency string) (Rate, error) {
	if s.inner == nil {
		return Rate{}, errors.New("inner rate source is required")
	}

	from := normalizeCurrency(fromCurrency)
	to := normalizeCurrency(toCurrency)
	key := from + "->" + to
	now := s.now()

	s.mu.Lock()
	entry, ok := s.rates[key]
	if ok && now.Before(entry.expiresAt) {
		s.mu.Unlock()
		return entry.rate, nil
	}
	delete(s.rates, key)
	s.mu.Unlock()

	rate, err := s.inner.Rate(ctx, from, to)
	if err != nil {
		return Rate{}, err
	}
	if !rate.Value.IsPositive() {
		return Rate{}, errors.New("exchange rate must be positive")
	}

	s.mu.Lock()
	s.rates[key] = cachedRate{rate: rate, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()

	return rate, nil
}
