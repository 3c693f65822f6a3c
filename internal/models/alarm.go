package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// AlarmType identifies the measurement a rule watches. The numeric values
// are stable database codes and must not be reordered.
type AlarmType int

const (
	AlarmTemperature AlarmType = 0
	AlarmHumidity    AlarmType = 1
	AlarmPressure    AlarmType = 2
	AlarmRSSI        AlarmType = 3
	AlarmMovement    AlarmType = 4
	AlarmOffline     AlarmType = 5
)

// alarmTypeInfo holds the per-type constants: the code used when syncing a
// rule to the cloud backend and the inclusive bounds for user-entered
// thresholds. Movement and offline carry degenerate magnitude ranges.
type alarmTypeInfo struct {
	networkCode   string
	possibleRange [2]float64
	extraRange    [2]float64
}

var alarmTypes = map[AlarmType]alarmTypeInfo{
	AlarmTemperature: {"temperature", [2]float64{-40, 85}, [2]float64{-55, 150}},
	AlarmHumidity:    {"humidity", [2]float64{0, 100}, [2]float64{0, 100}},
	AlarmPressure:    {"pressure", [2]float64{50000, 115500}, [2]float64{50000, 115500}},
	AlarmRSSI:        {"signal", [2]float64{-105, 0}, [2]float64{-105, 0}},
	AlarmMovement:    {"movement", [2]float64{0, 0}, [2]float64{0, 0}},
	AlarmOffline:     {"offline", [2]float64{120, 86400}, [2]float64{120, 86400}},
}

// Known reports whether the type is a member of the enumeration. Unknown
// codes can arrive from a newer schema version and must stay inert.
func (t AlarmType) Known() bool {
	_, ok := alarmTypes[t]
	return ok
}

// NetworkCode returns the string code used in cloud sync payloads.
func (t AlarmType) NetworkCode() string {
	return alarmTypes[t].networkCode
}

// PossibleRange returns the recommended threshold bounds for UI sliders.
func (t AlarmType) PossibleRange() (low, high float64) {
	r := alarmTypes[t].possibleRange
	return r[0], r[1]
}

// ExtraRange returns the widest accepted threshold bounds.
func (t AlarmType) ExtraRange() (low, high float64) {
	r := alarmTypes[t].extraRange
	return r[0], r[1]
}

// ValueInRange reports whether v lies within the type's extra range.
func (t AlarmType) ValueInRange(v float64) bool {
	r := alarmTypes[t].extraRange
	return v >= r[0] && v <= r[1]
}

func (t AlarmType) String() string {
	if info, ok := alarmTypes[t]; ok {
		return info.networkCode
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// AlarmTypeByNetworkCode resolves a cloud sync code to a type.
func AlarmTypeByNetworkCode(code string) (AlarmType, bool) {
	for t, info := range alarmTypes {
		if info.networkCode == code {
			return t, true
		}
	}
	return 0, false
}

// AlarmRule is a persisted threshold/condition definition for one sensor
// and one measurement type.
type AlarmRule struct {
	ID          int64      `json:"id"`
	SensorID    string     `json:"sensor_id"`
	Type        AlarmType  `json:"type"`
	Low         float64    `json:"low"`
	High        float64    `json:"high"`
	Enabled     bool       `json:"enabled"`
	Description string     `json:"description,omitempty"`
	MutedUntil  *time.Time `json:"muted_until,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate checks the rule invariants: known type, low ≤ high, and both
// thresholds within the type's extra range. Movement and offline rules skip
// the range check since their thresholds carry no magnitude.
func (r *AlarmRule) Validate() error {
	if !r.Type.Known() {
		return fmt.Errorf("unknown alarm type %d", int(r.Type))
	}
	if r.Low > r.High {
		return fmt.Errorf("alarm rule %d: low %v > high %v", r.ID, r.Low, r.High)
	}
	if r.Type == AlarmMovement || r.Type == AlarmOffline {
		return nil
	}
	if !r.Type.ValueInRange(r.Low) || !r.Type.ValueInRange(r.High) {
		lo, hi := r.Type.ExtraRange()
		return fmt.Errorf("alarm rule %d: thresholds [%v, %v] outside %s range [%v, %v]",
			r.ID, r.Low, r.High, r.Type, lo, hi)
	}
	return nil
}

// Muted reports whether the rule's mute window covers the given instant.
func (r *AlarmRule) Muted(now time.Time) bool {
	return r.MutedUntil != nil && r.MutedUntil.After(now)
}

// AlarmEvent is a persisted history row: the audit trail of one fired
// notification.
type AlarmEvent struct {
	ID          string    `json:"id"`
	RuleID      int64     `json:"rule_id"`
	SensorID    string    `json:"sensor_id"`
	Type        AlarmType `json:"type"`
	Message     string    `json:"message"`
	TriggeredAt time.Time `json:"triggered_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// CloudAlertRequest is the wire shape used to push a rule to the cloud
// backend. Only the payload lives here; the sync queue is out of scope.
type CloudAlertRequest struct {
	Sensor      string  `json:"sensor"`
	Type        string  `json:"type"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Enabled     bool    `json:"enabled"`
	Description string  `json:"description"`
	Timestamp   int64   `json:"timestamp"`
}

// ToCloudRequest builds the cloud sync payload for the rule.
func (r *AlarmRule) ToCloudRequest(now time.Time) (CloudAlertRequest, error) {
	if !r.Type.Known() {
		return CloudAlertRequest{}, fmt.Errorf("alarm rule %d: no network code for type %d", r.ID, int(r.Type))
	}
	return CloudAlertRequest{
		Sensor:      r.SensorID,
		Type:        r.Type.NetworkCode(),
		Min:         r.Low,
		Max:         r.High,
		Enabled:     r.Enabled,
		Description: r.Description,
		Timestamp:   now.Unix(),
	}, nil
}

// MarshalJSON emits the type as its network code for API responses.
func (t AlarmType) MarshalJSON() ([]byte, error) {
	if info, ok := alarmTypes[t]; ok {
		return json.Marshal(info.networkCode)
	}
	return json.Marshal(int(t))
}

// UnmarshalJSON accepts either a network code string or a numeric DB code.
func (t *AlarmType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, ok := AlarmTypeByNetworkCode(s)
		if !ok {
			return fmt.Errorf("unknown alarm type %q", s)
		}
		*t = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("alarm type must be a string or number")
	}
	*t = AlarmType(n)
	return nil
}
