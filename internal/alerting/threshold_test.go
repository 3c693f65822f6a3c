package alerting

import (
	"math"
	"testing"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

func fp(v float64) *float64 { return &v }

func TestEvaluateThreshold(t *testing.T) {
	rule := &models.AlarmRule{
		ID:   1,
		Type: models.AlarmTemperature,
		Low:  -10,
		High: 85,
	}

	tests := []struct {
		name         string
		value        *float64
		wantBoundary Boundary
		wantNone     bool
	}{
		{name: "in range", value: fp(20), wantNone: true},
		{name: "below low", value: fp(-10.0001), wantBoundary: BoundaryLow},
		{name: "above high", value: fp(85.0001), wantBoundary: BoundaryHigh},
		{name: "exactly low does not trigger", value: fp(-10), wantNone: true},
		{name: "exactly high does not trigger", value: fp(85), wantNone: true},
		{name: "just inside low", value: fp(-9.9999), wantNone: true},
		{name: "missing channel", value: nil, wantNone: true},
		// NaN compares false against both thresholds; it must never
		// trigger, matching floating-point comparison semantics.
		{name: "NaN never triggers", value: fp(math.NaN()), wantNone: true},
		{name: "far below", value: fp(-273), wantBoundary: BoundaryLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateThreshold(tt.value, rule)
			if tt.wantNone {
				if got != nil {
					t.Fatalf("expected no violation, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected a violation, got none")
			}
			if got.Boundary != tt.wantBoundary {
				t.Errorf("boundary = %q, want %q", got.Boundary, tt.wantBoundary)
			}
		})
	}
}

func TestEvaluateThresholdReportsCrossedThreshold(t *testing.T) {
	rule := &models.AlarmRule{Type: models.AlarmHumidity, Low: 30, High: 70}

	if v := EvaluateThreshold(fp(10), rule); v == nil || v.Threshold != 30 {
		t.Errorf("low violation threshold = %+v, want 30", v)
	}
	if v := EvaluateThreshold(fp(90), rule); v == nil || v.Threshold != 70 {
		t.Errorf("high violation threshold = %+v, want 70", v)
	}
}

func TestEvaluateThresholdRangeSymmetry(t *testing.T) {
	rule := &models.AlarmRule{Type: models.AlarmRSSI, Low: -90, High: -40}

	for v := -90.0; v <= -40.0; v += 0.5 {
		if got := EvaluateThreshold(fp(v), rule); got != nil {
			t.Fatalf("value %v inside [-90, -40] triggered %+v", v, got)
		}
	}
}

func TestEvaluateThresholdMissingChannelIdempotence(t *testing.T) {
	rules := []*models.AlarmRule{
		{Type: models.AlarmTemperature, Low: 0, High: 0},
		{Type: models.AlarmPressure, Low: 115500, High: 50000}, // malformed on purpose
		{Type: models.AlarmRSSI, Low: -105, High: 0},
	}
	for _, rule := range rules {
		if got := EvaluateThreshold(nil, rule); got != nil {
			t.Errorf("nil value triggered %+v for rule %+v", got, rule)
		}
	}
}
