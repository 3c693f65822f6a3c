package alerting

import (
	"math"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

// movementAccelThreshold is the minimum per-axis acceleration delta, in g,
// that counts as physical movement on hardware without a movement counter.
const movementAccelThreshold = 0.03

// HasMoved decides whether physical movement occurred between the two most
// recent history samples, ordered oldest to newest.
//
// On the counter-reporting format the firmware increments the counter on
// every detected jolt, so any change is authoritative and the acceleration
// heuristic is not consulted. On all other formats movement is inferred
// from a per-axis delta strictly greater than the threshold; missing
// acceleration components read as 0.
func HasMoved(previous, latest *models.Reading, dataFormat int) bool {
	if dataFormat == models.MovementCounterFormat {
		return counterValue(latest) != counterValue(previous)
	}
	return axisDelta(previous.AccelX, latest.AccelX) > movementAccelThreshold ||
		axisDelta(previous.AccelY, latest.AccelY) > movementAccelThreshold ||
		axisDelta(previous.AccelZ, latest.AccelZ) > movementAccelThreshold
}

func counterValue(r *models.Reading) int {
	if r.MovementCounter == nil {
		return 0
	}
	return *r.MovementCounter
}

func axisDelta(a, b *float64) float64 {
	var av, bv float64
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return math.Abs(av - bv)
}
