// Package ratelimit applies a per-client fixed-window limit to mutating requests.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window          = time.Minute
	staleAfter      = 10 * time.Minute
	defaultInterval = 5 * time.Minute
)

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: defaultInterval}
}

type client struct {
	windowStart time.Time
	lastSeen    time.Time
	requests    int
}

// Limiter counts requests per client key inside one-minute windows.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	cleanup time.Duration
	now     func() time.Time

	rejected atomic.Int64
}

func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultInterval
	}
	return &Limiter{
		clients: make(map[string]*client),
		limit:   cfg.RequestsPerMinute,
		cleanup: cfg.CleanupInterval,
		now:     time.Now,
	}
}

// Allow records a request from key and reports whether it fits the current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok || now.Sub(c.windowStart) >= window {
		l.clients[key] = &client{windowStart: now, lastSeen: now, requests: 1}
		return true
	}
	c.lastSeen = now
	if c.requests >= l.limit {
		l.rejected.Add(1)
		return false
	}
	c.requests++
	return true
}

// RetryAfter returns the seconds until the window of key resets.
func (l *Limiter) RetryAfter(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[key]
	if !ok {
		return 0
	}
	remaining := window - l.now().Sub(c.windowStart)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// Prune forgets clients idle for longer than ten minutes.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-staleAfter)
	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Run prunes idle clients until ctx is done.
func (l *Limiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Prune()
		}
	}
}

type Metrics struct {
	Rejected    int64
	ClientCount int
}

func (l *Limiter) Metrics() Metrics {
	l.mu.Lock()
	count := len(l.clients)
	l.mu.Unlock()
	return Metrics{Rejected: l.rejected.Load(), ClientCount: count}
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// Middleware limits mutating requests per client. onLimit writes the rejection;
// Retry-After is already set when it runs.
func (l *Limiter) Middleware(clientKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			key := clientKey(r)
			if !l.Allow(key) {
				w.Header().Set("Retry-After", strconv.Itoa(l.RetryAfter(key)))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
