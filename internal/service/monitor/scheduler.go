package monitor

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// MinRefreshInterval is the floor of the auto-refresh period.
	MinRefreshInterval = 10 * time.Second
	// RateLimitWindow is the minimum gap between two automatic cycles.
	RateLimitWindow = 5 * time.Second
)

// EffectiveInterval clamps a configured auto-refresh period to the floor.
func EffectiveInterval(configured time.Duration) time.Duration {
	return max(configured, MinRefreshInterval)
}

// dropReason tells why a refresh request did not start a cycle.
type dropReason string

const (
	dropNone        dropReason = ""
	dropInFlight    dropReason = "in_flight"
	dropRateLimited dropReason = "rate_limited"
)

// gate is the single-flight guard plus the automatic-call rate limiter.
type gate struct {
	inFlight atomic.Bool

	// mu guards lastAuto.
	mu       sync.Mutex
	lastAuto time.Time
	now      func() time.Time
}

func newGate(now func() time.Time) *gate {
	return &gate{now: now}
}

// acquire starts a cycle or reports why it was dropped. Forced calls bypass
// the rate limit and do not move the automatic timestamp. A rate-limited
// automatic call never holds the guard.
func (g *gate) acquire(force bool) dropReason {
	if force {
		if !g.inFlight.CompareAndSwap(false, true) {
			return dropInFlight
		}

		return dropNone
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.lastAuto.IsZero() && now.Sub(g.lastAuto) < RateLimitWindow {
		return dropRateLimited
	}

	if !g.inFlight.CompareAndSwap(false, true) {
		return dropInFlight
	}

	g.lastAuto = now

	return dropNone
}

// release frees the guard. It must run on every exit path of a cycle.
func (g *gate) release() {
	g.inFlight.Store(false)
}
