package fetcher

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HostLimiters hands out one AdaptiveLimiter per host, created lazily.
// A non-positive rate disables limiting.
type HostLimiters struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHostLimiters creates a per-host limiter set allowing rps requests per
// second to each host.
func NewHostLimiters(rps float64, burst int) *HostLimiters {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiters{
		rate:     rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

// For returns the limiter for the host of rawURL, or nil when limiting is
// disabled.
func (h *HostLimiters) For(rawURL string) *AdaptiveLimiter {
	if h == nil || h.rate <= 0 {
		return nil
	}
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	host = strings.TrimPrefix(strings.ToLower(host), "www.")

	h.mu.Lock()
	defer h.mu.Unlock()
	lim, ok := h.limiters[host]
	if !ok {
		lim = NewAdaptiveLimiter(h.rate, h.burst)
		h.limiters[host] = lim
	}
	return lim
}

// Wait blocks until a request to rawURL's host is allowed.
func (h *HostLimiters) Wait(ctx context.Context, rawURL string) error {
	lim := h.For(rawURL)
	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}
