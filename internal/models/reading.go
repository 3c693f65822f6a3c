package models

import "time"

// MovementCounterFormat is the data format version whose firmware maintains
// a monotonic movement counter. For this format the counter is authoritative
// for movement detection; older formats fall back to acceleration deltas.
const MovementCounterFormat = 5

// Reading is a timestamped snapshot of one sensor's measurements as stored
// in history. Channels a sensor does not report are nil.
type Reading struct {
	ID              int64     `json:"id"`
	SensorID        string    `json:"sensor_id"`
	DataFormat      int       `json:"data_format"`
	Temperature     *float64  `json:"temperature,omitempty"`
	Humidity        *float64  `json:"humidity,omitempty"`
	Pressure        *float64  `json:"pressure,omitempty"`
	RSSI            *float64  `json:"rssi,omitempty"`
	AccelX          *float64  `json:"accel_x,omitempty"`
	AccelY          *float64  `json:"accel_y,omitempty"`
	AccelZ          *float64  `json:"accel_z,omitempty"`
	MovementCounter *int      `json:"movement_counter,omitempty"`
	Voltage         *float64  `json:"voltage,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Sensor is a registered beacon sensor.
type Sensor struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	DataFormat  int        `json:"data_format"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Title returns the user-facing name: the display name when set, otherwise
// the sensor id.
func (s *Sensor) Title() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// SensorSnapshot is the flattened current state of a sensor handed to the
// alarm engine: identity plus the latest value of each channel.
type SensorSnapshot struct {
	ID          string
	DisplayName string
	DataFormat  int
	Temperature *float64
	Humidity    *float64
	Pressure    *float64
	RSSI        *float64
	UpdatedAt   time.Time
}

// SnapshotFromReading builds an engine snapshot from a sensor row and its
// most recent reading.
func SnapshotFromReading(sensor *Sensor, reading *Reading) SensorSnapshot {
	return SensorSnapshot{
		ID:          sensor.ID,
		DisplayName: sensor.Title(),
		DataFormat:  reading.DataFormat,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		Pressure:    reading.Pressure,
		RSSI:        reading.RSSI,
		UpdatedAt:   reading.CreatedAt,
	}
}
