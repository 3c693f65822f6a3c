package alerting

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/good-yellow-bee/tagwatch/internal/models"
	"github.com/good-yellow-bee/tagwatch/internal/units"
)

// NotificationEvent is a throttled, render-ready alarm notification. The
// caller hands each event to a notifier; the engine itself performs no
// delivery.
type NotificationEvent struct {
	RuleID      int64            `json:"rule_id"`
	SensorID    string           `json:"sensor_id"`
	SensorName  string           `json:"sensor_name"`
	Type        models.AlarmType `json:"type"`
	Key         MessageKey       `json:"key"`
	Message     string           `json:"message"`
	Boundary    Boundary         `json:"boundary,omitempty"`
	Threshold   float64          `json:"threshold,omitempty"`
	Description string           `json:"description,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NotificationID returns the platform notification id for the event.
// Notifications are keyed per rule so a re-fire replaces the previous one.
func (e *NotificationEvent) NotificationID() int64 {
	return e.RuleID
}

// AlarmStatus summarizes a sensor's alarm state for UI badge rendering.
type AlarmStatus int

const (
	// StatusNoAlarms means the sensor has no enabled alarm rules.
	StatusNoAlarms AlarmStatus = iota
	// StatusNotTriggered means rules exist but none is currently violated.
	StatusNotTriggered
	// StatusTriggered means at least one rule is currently violated.
	StatusTriggered
)

func (s AlarmStatus) String() string {
	switch s {
	case StatusNotTriggered:
		return "not_triggered"
	case StatusTriggered:
		return "triggered"
	default:
		return "no_alarms"
	}
}

// AlarmSensorStatus is the result of a status query: the overall badge state
// plus the set of violated types, in rule order.
type AlarmSensorStatus struct {
	Status    AlarmStatus        `json:"status"`
	Triggered []models.AlarmType `json:"triggered,omitempty"`
}

// EngineStats tracks engine counters using atomics for lock-free reads.
type EngineStats struct {
	RulesEvaluated   atomic.Int64
	Violations       atomic.Int64
	EventsFired      atomic.Int64
	EventsSuppressed atomic.Int64
	MalformedRules   atomic.Int64
}

// EngineStatsSnapshot is a point-in-time copy of engine counters.
type EngineStatsSnapshot struct {
	RulesEvaluated   int64
	Violations       int64
	EventsFired      int64
	EventsSuppressed int64
	MalformedRules   int64
}

// EngineOptions configures the alarm engine.
type EngineOptions struct {
	// Cooldown is the per-rule notification cooldown window.
	Cooldown time.Duration
	// Templates overrides the message key lookup. Nil uses defaults.
	Templates Templates
	// Units selects the display units for threshold values in messages.
	Units units.Converter
}

// Engine evaluates a sensor's full current state against its alarm rules
// and decides, per rule, whether a notification should fire right now.
// One engine instance serves all sensors; the throttle map is the only
// mutable state and is safe for concurrent evaluation contexts.
type Engine struct {
	throttle *Throttle
	renderer *Renderer
	stats    *EngineStats
}

// NewEngine creates an alarm engine.
func NewEngine(opts *EngineOptions) *Engine {
	if opts == nil {
		opts = &EngineOptions{}
	}
	conv := opts.Units
	if conv == (units.Converter{}) {
		conv = units.Default()
	}
	return &Engine{
		throttle: NewThrottle(opts.Cooldown),
		renderer: NewRenderer(opts.Templates, conv),
		stats:    &EngineStats{},
	}
}

// CheckAlarms evaluates every rule for the sensor and returns the
// notifications that passed the throttle. history holds the sensor's most
// recent readings ordered oldest to newest; movement rules need at least
// two entries and silently skip otherwise.
func (e *Engine) CheckAlarms(snapshot models.SensorSnapshot, history []models.Reading, rules []*models.AlarmRule) []NotificationEvent {
	return e.CheckAlarmsAt(snapshot, history, rules, time.Now())
}

// CheckAlarmsAt evaluates at a specific instant (useful for testing).
func (e *Engine) CheckAlarmsAt(snapshot models.SensorSnapshot, history []models.Reading, rules []*models.AlarmRule, now time.Time) []NotificationEvent {
	var events []NotificationEvent

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		result := e.evaluateRule(snapshot, history, rule)
		if result == nil {
			continue
		}
		e.stats.Violations.Add(1)

		if !e.throttle.Eligible(rule, now) {
			e.stats.EventsSuppressed.Add(1)
			continue
		}
		e.stats.EventsFired.Add(1)

		events = append(events, NotificationEvent{
			RuleID:      rule.ID,
			SensorID:    snapshot.ID,
			SensorName:  snapshot.DisplayName,
			Type:        rule.Type,
			Key:         result.key,
			Message:     e.renderer.Render(result.key, rule.Type, result.threshold),
			Boundary:    result.boundary,
			Threshold:   result.threshold,
			Description: rule.Description,
			Timestamp:   now,
		})
	}

	return events
}

// Status evaluates the sensor's alarm state without side effects. It reuses
// the same per-rule evaluators as CheckAlarms but never consults the
// throttle, so it is idempotent and callable arbitrarily often without
// affecting when real notifications fire.
func (e *Engine) Status(snapshot models.SensorSnapshot, history []models.Reading, rules []*models.AlarmRule) AlarmSensorStatus {
	hasEnabled := false
	var triggered []models.AlarmType
	seen := make(map[models.AlarmType]bool)

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		hasEnabled = true
		if result := e.evaluateRule(snapshot, history, rule); result != nil {
			if !seen[rule.Type] {
				seen[rule.Type] = true
				triggered = append(triggered, rule.Type)
			}
		}
	}

	switch {
	case len(triggered) > 0:
		return AlarmSensorStatus{Status: StatusTriggered, Triggered: triggered}
	case hasEnabled:
		return AlarmSensorStatus{Status: StatusNotTriggered}
	default:
		return AlarmSensorStatus{Status: StatusNoAlarms}
	}
}

// ruleResult carries the outcome of a single rule evaluation.
type ruleResult struct {
	key       MessageKey
	boundary  Boundary
	threshold float64
}

// evaluateRule dispatches by alarm type. A malformed rule (unknown type,
// low > high) is inert: it is counted and logged but never aborts the rest
// of the batch.
func (e *Engine) evaluateRule(snapshot models.SensorSnapshot, history []models.Reading, rule *models.AlarmRule) *ruleResult {
	e.stats.RulesEvaluated.Add(1)

	if err := rule.Validate(); err != nil {
		e.stats.MalformedRules.Add(1)
		log.Printf("skipping malformed alarm rule %d for sensor %s: %v", rule.ID, snapshot.ID, err)
		return nil
	}

	switch rule.Type {
	case models.AlarmTemperature:
		return thresholdResult(rule, EvaluateThreshold(snapshot.Temperature, rule))
	case models.AlarmHumidity:
		return thresholdResult(rule, EvaluateThreshold(snapshot.Humidity, rule))
	case models.AlarmPressure:
		return thresholdResult(rule, EvaluateThreshold(snapshot.Pressure, rule))
	case models.AlarmRSSI:
		return thresholdResult(rule, EvaluateThreshold(snapshot.RSSI, rule))
	case models.AlarmMovement:
		if len(history) < 2 {
			return nil
		}
		previous := history[len(history)-2]
		latest := history[len(history)-1]
		if HasMoved(&previous, &latest, snapshot.DataFormat) {
			return &ruleResult{key: KeyMovement}
		}
		return nil
	default:
		// Offline alarms are evaluated by the cloud backend; other codes
		// may belong to a newer schema. Both stay inert here.
		return nil
	}
}

func thresholdResult(rule *models.AlarmRule, v *Violation) *ruleResult {
	if v == nil {
		return nil
	}
	return &ruleResult{
		key:       thresholdKey(rule.Type, v.Boundary),
		boundary:  v.Boundary,
		threshold: v.Threshold,
	}
}

// Throttle exposes the engine's throttle for rule lifecycle cleanup.
func (e *Engine) Throttle() *Throttle {
	return e.throttle
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() EngineStatsSnapshot {
	return EngineStatsSnapshot{
		RulesEvaluated:   e.stats.RulesEvaluated.Load(),
		Violations:       e.stats.Violations.Load(),
		EventsFired:      e.stats.EventsFired.Load(),
		EventsSuppressed: e.stats.EventsSuppressed.Load(),
		MalformedRules:   e.stats.MalformedRules.Load(),
	}
}
