package units

import "testing"

func TestTemperatureString(t *testing.T) {
	tests := []struct {
		unit    TemperatureUnit
		celsius float64
		want    string
	}{
		{Celsius, 21.5, "21.5°C"},
		{Fahrenheit, 0, "32.0°F"},
		{Fahrenheit, 100, "212.0°F"},
		{Kelvin, 0, "273.1K"},
		{Celsius, -40, "-40.0°C"},
	}
	for _, tt := range tests {
		c := Converter{Temperature: tt.unit}
		if got := c.TemperatureString(tt.celsius); got != tt.want {
			t.Errorf("%s(%v) = %q, want %q", tt.unit, tt.celsius, got, tt.want)
		}
	}
}

func TestPressureString(t *testing.T) {
	tests := []struct {
		unit   PressureUnit
		pascal float64
		want   string
	}{
		{Hectopascal, 101325, "1013.25 hPa"},
		{Pascal, 101325, "101325 Pa"},
		{MillimeterHg, 101325, "760.0 mmHg"},
	}
	for _, tt := range tests {
		c := Converter{Pressure: tt.unit}
		if got := c.PressureString(tt.pascal); got != tt.want {
			t.Errorf("%s(%v) = %q, want %q", tt.unit, tt.pascal, got, tt.want)
		}
	}
}

func TestDefaultConverter(t *testing.T) {
	c := Default()
	if got := c.HumidityString(42.4); got != "42%" {
		t.Errorf("humidity = %q", got)
	}
	if got := c.RSSIString(-71.2); got != "-71 dBm" {
		t.Errorf("rssi = %q", got)
	}
	if got := c.TemperatureString(85); got != "85.0°C" {
		t.Errorf("temperature = %q", got)
	}
}
