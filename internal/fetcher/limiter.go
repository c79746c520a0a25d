package fetcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter spaces out requests to the same host with a fixed minimum
// delay and an optional token bucket.
type HostLimiter struct {
	delay    time.Duration
	requests int
	window   time.Duration

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewHostLimiter returns nil when neither a delay nor a rate is configured.
func NewHostLimiter(delay time.Duration, requests int, window time.Duration) *HostLimiter {
	if delay <= 0 && (requests <= 0 || window <= 0) {
		return nil
	}
	l := &HostLimiter{
		delay:    delay,
		last:     make(map[string]time.Time),
		limiters: make(map[string]*rate.Limiter),
	}
	if requests > 0 && window > 0 {
		l.requests = requests
		l.window = window
	}
	return l
}

// Wait blocks until the host may be contacted again or ctx is done.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	var sleep time.Duration
	l.mu.Lock()
	if last, ok := l.last[host]; ok && l.delay > 0 {
		sleep = time.Until(last.Add(l.delay))
	}
	limiter := l.bucketLocked(host)
	l.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.last[host] = time.Now()
	l.mu.Unlock()
	return nil
}

func (l *HostLimiter) bucketLocked(host string) *rate.Limiter {
	if l.requests == 0 {
		return nil
	}
	if limiter, ok := l.limiters[host]; ok {
		return limiter
	}
	interval := l.window / time.Duration(l.requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(interval), l.requests)
	l.limiters[host] = limiter
	return limiter
}
