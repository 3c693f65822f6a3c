package alerting

import (
	"fmt"

	"github.com/good-yellow-bee/tagwatch/internal/models"
	"github.com/good-yellow-bee/tagwatch/internal/units"
)

// MessageKey is an abstract identifier for a notification message. Keys are
// resolved to templates through a caller-suppliable lookup so the engine
// stays free of any platform resource system.
type MessageKey string

const (
	KeyTemperatureLow  MessageKey = "temperature_low"
	KeyTemperatureHigh MessageKey = "temperature_high"
	KeyHumidityLow     MessageKey = "humidity_low"
	KeyHumidityHigh    MessageKey = "humidity_high"
	KeyPressureLow     MessageKey = "pressure_low"
	KeyPressureHigh    MessageKey = "pressure_high"
	KeySignalLow       MessageKey = "signal_low"
	KeySignalHigh      MessageKey = "signal_high"
	KeyMovement        MessageKey = "movement"
)

// Templates maps message keys to fmt templates. Threshold templates receive
// one %s argument: the threshold value rendered in display units.
type Templates map[MessageKey]string

// DefaultTemplates returns the built-in English templates.
func DefaultTemplates() Templates {
	return Templates{
		KeyTemperatureLow:  "Temperature is below %s",
		KeyTemperatureHigh: "Temperature is above %s",
		KeyHumidityLow:     "Humidity is below %s",
		KeyHumidityHigh:    "Humidity is above %s",
		KeyPressureLow:     "Pressure is below %s",
		KeyPressureHigh:    "Pressure is above %s",
		KeySignalLow:       "Signal strength is below %s",
		KeySignalHigh:      "Signal strength is above %s",
		KeyMovement:        "Movement detected",
	}
}

// thresholdKey maps an alarm type and the crossed boundary to a message key.
// Returns "" for types without threshold messages.
func thresholdKey(t models.AlarmType, b Boundary) MessageKey {
	low := b == BoundaryLow
	switch t {
	case models.AlarmTemperature:
		if low {
			return KeyTemperatureLow
		}
		return KeyTemperatureHigh
	case models.AlarmHumidity:
		if low {
			return KeyHumidityLow
		}
		return KeyHumidityHigh
	case models.AlarmPressure:
		if low {
			return KeyPressureLow
		}
		return KeyPressureHigh
	case models.AlarmRSSI:
		if low {
			return KeySignalLow
		}
		return KeySignalHigh
	}
	return ""
}

// Renderer turns message keys into user-facing text, formatting threshold
// values in the user-selected display units.
type Renderer struct {
	templates Templates
	units     units.Converter
}

// NewRenderer creates a renderer. A nil templates map uses the defaults.
func NewRenderer(templates Templates, conv units.Converter) *Renderer {
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &Renderer{templates: templates, units: conv}
}

// Render produces the message for a threshold violation.
func (r *Renderer) Render(key MessageKey, alarmType models.AlarmType, threshold float64) string {
	tmpl, ok := r.templates[key]
	if !ok {
		tmpl = DefaultTemplates()[key]
	}
	if key == KeyMovement {
		return tmpl
	}
	return fmt.Sprintf(tmpl, r.displayValue(alarmType, threshold))
}

func (r *Renderer) displayValue(t models.AlarmType, v float64) string {
	switch t {
	case models.AlarmTemperature:
		return r.units.TemperatureString(v)
	case models.AlarmHumidity:
		return r.units.HumidityString(v)
	case models.AlarmPressure:
		return r.units.PressureString(v)
	case models.AlarmRSSI:
		return r.units.RSSIString(v)
	}
	return fmt.Sprintf("%v", v)
}
