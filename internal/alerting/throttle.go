package alerting

import (
	"sync"
	"time"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

// DefaultCooldown is the minimum interval between two notifications for the
// same rule. It is a policy constant, overridable per engine.
const DefaultCooldown = 10 * time.Second

// Throttle rate-limits re-notification per alarm rule, independent of
// whether the underlying condition is still true. State is in-memory only
// and scoped to the engine's lifetime: an alarm condition that persists
// across a process restart re-notifies once immediately, which is accepted
// behavior.
type Throttle struct {
	mu        sync.Mutex
	cooldown  time.Duration
	lastFired map[int64]time.Time
}

// NewThrottle creates a throttle with the given cooldown window.
// A non-positive cooldown falls back to DefaultCooldown.
func NewThrottle(cooldown time.Duration) *Throttle {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Throttle{
		cooldown:  cooldown,
		lastFired: make(map[int64]time.Time),
	}
}

// Eligible reports whether the rule may fire a notification at the given
// instant, and if so records the firing atomically with the decision.
// A rule is ineligible while its mute window is active, or while a prior
// firing is within the cooldown window. Muting is a separate axis from
// cooldown and overrides it at any time.
func (t *Throttle) Eligible(rule *models.AlarmRule, now time.Time) bool {
	if rule.Muted(now) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.lastFired[rule.ID]; ok && now.Sub(last) < t.cooldown {
		return false
	}
	t.lastFired[rule.ID] = now
	return true
}

// Clear forgets the firing state for a rule, e.g. when the rule is deleted.
func (t *Throttle) Clear(ruleID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastFired, ruleID)
}

// ClearAll forgets all firing state.
func (t *Throttle) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastFired = make(map[int64]time.Time)
}

// Cooldown returns the configured cooldown window.
func (t *Throttle) Cooldown() time.Duration {
	return t.cooldown
}
