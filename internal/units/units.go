// Package units converts raw sensor values to display strings in the
// user-selected units. Alarm thresholds are stored and compared in native
// units (°C, %, Pa, dBm); conversion happens only when rendering messages.
package units

import "fmt"

// TemperatureUnit selects the temperature display unit.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "C"
	Fahrenheit TemperatureUnit = "F"
	Kelvin     TemperatureUnit = "K"
)

// PressureUnit selects the pressure display unit. Native storage is pascal.
type PressureUnit string

const (
	Pascal        PressureUnit = "Pa"
	Hectopascal   PressureUnit = "hPa"
	MillimeterHg  PressureUnit = "mmHg"
)

// Converter renders native values as display strings.
type Converter struct {
	Temperature TemperatureUnit
	Pressure    PressureUnit
}

// Default returns a converter with metric defaults.
func Default() Converter {
	return Converter{Temperature: Celsius, Pressure: Hectopascal}
}

// TemperatureString formats a native °C value in the selected unit.
func (c Converter) TemperatureString(celsius float64) string {
	switch c.Temperature {
	case Fahrenheit:
		return fmt.Sprintf("%.1f°F", celsius*9/5+32)
	case Kelvin:
		return fmt.Sprintf("%.1fK", celsius+273.15)
	default:
		return fmt.Sprintf("%.1f°C", celsius)
	}
}

// HumidityString formats relative humidity.
func (c Converter) HumidityString(percent float64) string {
	return fmt.Sprintf("%.0f%%", percent)
}

// PressureString formats a native pascal value in the selected unit.
func (c Converter) PressureString(pascal float64) string {
	switch c.Pressure {
	case Pascal:
		return fmt.Sprintf("%.0f Pa", pascal)
	case MillimeterHg:
		return fmt.Sprintf("%.1f mmHg", pascal/133.322)
	default:
		return fmt.Sprintf("%.2f hPa", pascal/100)
	}
}

// RSSIString formats signal strength. Always dBm.
func (c Converter) RSSIString(dbm float64) string {
	return fmt.Sprintf("%.0f dBm", dbm)
}
