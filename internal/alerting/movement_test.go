package alerting

import (
	"testing"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

func ip(v int) *int { return &v }

func reading(x, y, z float64, counter *int) models.Reading {
	return models.Reading{
		AccelX:          fp(x),
		AccelY:          fp(y),
		AccelZ:          fp(z),
		MovementCounter: counter,
	}
}

func TestHasMovedCounterFormat(t *testing.T) {
	tests := []struct {
		name     string
		previous models.Reading
		latest   models.Reading
		want     bool
	}{
		{
			// The counter is authoritative on format 5: equal counters mean
			// no movement even with wildly different acceleration.
			name:     "equal counters override heuristic",
			previous: reading(0, 0, 0, ip(7)),
			latest:   reading(5, -5, 5, ip(7)),
			want:     false,
		},
		{
			name:     "counter change is movement",
			previous: reading(0, 0, 0, ip(7)),
			latest:   reading(0, 0, 0, ip(8)),
			want:     true,
		},
		{
			name:     "missing counters read as zero",
			previous: reading(0, 0, 0, nil),
			latest:   reading(1, 1, 1, nil),
			want:     false,
		},
		{
			name:     "one missing counter differs from nonzero",
			previous: reading(0, 0, 0, nil),
			latest:   reading(0, 0, 0, ip(3)),
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasMoved(&tt.previous, &tt.latest, models.MovementCounterFormat); got != tt.want {
				t.Errorf("HasMoved = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasMovedAccelHeuristic(t *testing.T) {
	const format = 3 // no movement counter on this format

	tests := []struct {
		name     string
		previous models.Reading
		latest   models.Reading
		want     bool
	}{
		{
			// Strictly greater than: a delta of exactly 0.03 is not movement.
			name:     "delta exactly at threshold",
			previous: reading(0, 0, 0, nil),
			latest:   reading(0.03, 0, 0, nil),
			want:     false,
		},
		{
			name:     "delta just above threshold",
			previous: reading(0, 0, 0, nil),
			latest:   reading(0.031, 0, 0, nil),
			want:     true,
		},
		{
			name:     "y axis movement",
			previous: reading(0.1, 0.1, 0.1, nil),
			latest:   reading(0.1, 0.2, 0.1, nil),
			want:     true,
		},
		{
			name:     "z axis movement",
			previous: reading(0, 0, 1.0, nil),
			latest:   reading(0, 0, 0.9, nil),
			want:     true,
		},
		{
			name:     "still",
			previous: reading(0.01, 0.02, 1.0, nil),
			latest:   reading(0.02, 0.01, 1.01, nil),
			want:     false,
		},
		{
			// Counter changes are ignored on non-counter formats.
			name:     "counter ignored",
			previous: reading(0, 0, 0, ip(1)),
			latest:   reading(0, 0, 0, ip(9)),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasMoved(&tt.previous, &tt.latest, format); got != tt.want {
				t.Errorf("HasMoved = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasMovedMissingAccelReadsAsZero(t *testing.T) {
	previous := models.Reading{}
	latest := models.Reading{AccelX: fp(0.1)}

	if !HasMoved(&previous, &latest, 3) {
		t.Error("missing components should read as 0, making a 0.1 delta movement")
	}

	if HasMoved(&models.Reading{}, &models.Reading{}, 3) {
		t.Error("two empty readings must not be movement")
	}
}
