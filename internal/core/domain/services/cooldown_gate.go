package services

import (
	"sync"
	"time"
)

// DefaultNotificationCooldown is the minimum gap between two proximity bursts.
const DefaultNotificationCooldown = 5 * time.Minute

// CooldownGate lets an event through at most once per cooldown window.
//
// The gate is wall-clock based: a window that elapsed while the process was
// idle counts as elapsed. It is safe for concurrent use.
//
// Example:
//
//	gate := services.NewCooldownGate(services.DefaultNotificationCooldown)
//	if gate.TryFire(time.Now()) {
//	    // notify
//	}
type CooldownGate struct {
	mu          sync.Mutex
	cooldown    time.Duration
	lastFiredAt time.Time
}

// NewCooldownGate returns an open gate. A non-positive cooldown falls back to
// DefaultNotificationCooldown.
func NewCooldownGate(cooldown time.Duration) *CooldownGate {
	if cooldown <= 0 {
		cooldown = DefaultNotificationCooldown
	}
	return &CooldownGate{cooldown: cooldown}
}

// TryFire reports whether an event at now may fire and, if so, records now as
// the last firing. The check and the update happen atomically.
func (g *CooldownGate) TryFire(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastFiredAt.IsZero() && now.Sub(g.lastFiredAt) < g.cooldown {
		return false
	}
	g.lastFiredAt = now
	return true
}

// LastFiredAt returns the time of the last firing, zero if none.
func (g *CooldownGate) LastFiredAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastFiredAt
}

// Cooldown returns the configured window.
func (g *CooldownGate) Cooldown() time.Duration {
	return g.cooldown
}

// Reset forgets the last firing so the next event fires immediately.
func (g *CooldownGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastFiredAt = time.Time{}
}
