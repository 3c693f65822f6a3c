// Package alerting provides the alarm evaluation engine for TagWatch.
// It evaluates a sensor's latest state against its alarm rules with
// per-rule cooldown/mute throttling of notifications.
package alerting

import (
	"github.com/good-yellow-bee/tagwatch/internal/models"
)

// Boundary identifies which threshold a measurement crossed.
type Boundary string

const (
	BoundaryLow  Boundary = "low"
	BoundaryHigh Boundary = "high"
)

// Violation is the outcome of a threshold check that triggered.
type Violation struct {
	Boundary  Boundary
	Threshold float64
}

// EvaluateThreshold decides whether a single range-checked measurement
// violates its rule. A nil value means the sensor does not report this
// channel and never triggers. Comparison is strict: a value exactly equal
// to a threshold is in range. NaN compares false against both thresholds
// and therefore never triggers; that follows IEEE-754 semantics and is
// covered by tests rather than special-cased.
func EvaluateThreshold(value *float64, rule *models.AlarmRule) *Violation {
	if value == nil {
		return nil
	}
	if *value < rule.Low {
		return &Violation{Boundary: BoundaryLow, Threshold: rule.Low}
	}
	if *value > rule.High {
		return &Violation{Boundary: BoundaryHigh, Threshold: rule.High}
	}
	return nil
}
