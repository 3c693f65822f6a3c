// Package ingest receives decoded sensor broadcasts from MQTT gateways and
// feeds them into storage and the alarm checker.
package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

// gatewayPayload is the JSON body a gateway publishes per broadcast. All
// measurement fields are optional; absent channels stay nil on the reading.
type gatewayPayload struct {
	DataFormat      int      `json:"data_format"`
	Temperature     *float64 `json:"temperature"`
	Humidity        *float64 `json:"humidity"`
	Pressure        *float64 `json:"pressure"`
	RSSI            *float64 `json:"rssi"`
	AccelX          *float64 `json:"accel_x"`
	AccelY          *float64 `json:"accel_y"`
	AccelZ          *float64 `json:"accel_z"`
	MovementCounter *int     `json:"movement_counter"`
	Voltage         *float64 `json:"battery_voltage"`
	Timestamp       *int64   `json:"timestamp"` // unix seconds; defaults to receive time
}

// DecodeReading parses a gateway payload into a reading for the given
// sensor. It rejects payloads with no measurements at all.
func DecodeReading(sensorID string, payload []byte) (*models.Reading, error) {
	var p gatewayPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid gateway payload: %w", err)
	}

	if p.Temperature == nil && p.Humidity == nil && p.Pressure == nil &&
		p.RSSI == nil && p.MovementCounter == nil &&
		p.AccelX == nil && p.AccelY == nil && p.AccelZ == nil {
		return nil, fmt.Errorf("gateway payload carries no measurements")
	}

	createdAt := time.Now().UTC()
	if p.Timestamp != nil {
		createdAt = time.Unix(*p.Timestamp, 0).UTC()
	}

	return &models.Reading{
		SensorID:        sensorID,
		DataFormat:      p.DataFormat,
		Temperature:     p.Temperature,
		Humidity:        p.Humidity,
		Pressure:        p.Pressure,
		RSSI:            p.RSSI,
		AccelX:          p.AccelX,
		AccelY:          p.AccelY,
		AccelZ:          p.AccelZ,
		MovementCounter: p.MovementCounter,
		Voltage:         p.Voltage,
		CreatedAt:       createdAt,
	}, nil
}
