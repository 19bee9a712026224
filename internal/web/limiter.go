package web

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// submitLimiter throttles form submissions per client address using a
// token bucket per address.
type submitLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      float64
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newSubmitLimiter(rps float64, burst int,
	idle time.Duration) *submitLimiter {

	return &submitLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rps,
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow reports whether host may submit now and spends a token if so.
func (l *submitLimiter) Allow(host string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.limiters[host]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst),
		}
		l.limiters[host] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// Prune forgets addresses that have not submitted for the idle period. A
// forgotten address starts again with a full bucket.
func (l *submitLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idle)

	var pruned int
	for host, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, host)
			pruned++
		}
	}

	return pruned
}

// clientHost returns the address a request is rate limited under.
func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
