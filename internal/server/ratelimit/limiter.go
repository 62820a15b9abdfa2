// Package ratelimit implements the per-client leaky bucket. Each admitted or
// rejected request increments a counter keyed by the client's identity
// prefix; a periodic decay drains the counters and evicts the identities
// that have fully cooled down, so the map only tracks recently active
// clients.
package ratelimit

import (
	"sync"

	"github.com/dmitrijs2005/cryptshare/internal/server/identity"
)

// Limiter is safe for concurrent use. The mutex is only ever held for the
// duration of a map operation, never across I/O.
type Limiter struct {
	mu     sync.Mutex
	counts map[identity.Prefix]uint64
	cap    uint64
}

// New returns a Limiter admitting at most cap requests per identity per
// decay window.
func New(cap uint64) *Limiter {
	return &Limiter{
		counts: make(map[identity.Prefix]uint64),
		cap:    cap,
	}
}

// Admit records one request from the given identity and reports whether it
// is within budget. The counter is incremented before the comparison, so
// rejected requests are counted too: a client cannot probe for free.
func (l *Limiter) Admit(p identity.Prefix) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[p]++
	return l.counts[p] <= l.cap
}

// Decay subtracts step from every counter, flooring at zero, and removes
// entries that reach zero so the map stays bounded to active identities.
func (l *Limiter) Decay(step uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for p, v := range l.counts {
		if v <= step {
			delete(l.counts, p)
			continue
		}
		l.counts[p] = v - step
	}
}

// DecayStep computes the per-interval drain amount for the configured cap
// and the number of decay intervals per window, never less than one.
func DecayStep(cap, periodsPerWindow uint64) uint64 {
	if periodsPerWindow == 0 {
		return 1
	}
	step := cap / periodsPerWindow
	if step == 0 {
		return 1
	}
	return step
}

// Len reports how many identities are currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counts)
}
