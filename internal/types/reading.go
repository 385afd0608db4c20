package types

import (
	"errors"
	"math"
	"time"
)

// Reading is one validated sensor sample. The ID is assigned at ingestion;
// readings are immutable once accepted.
type Reading struct {
	ID           string    `json:"id"`
	BatchID      string    `json:"batchId"`
	DeviceID     string    `json:"deviceId"`
	MedicineType string    `json:"medicineType,omitempty"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	Timestamp    time.Time `json:"timestamp"`
}

var (
	ErrMissingBatchID  = errors.New("batchId is required")
	ErrMissingDeviceID = errors.New("deviceId is required")
	ErrBadTemperature  = errors.New("temperature must be a finite number")
	ErrBadHumidity     = errors.New("humidity must be a finite number")
)

// Validate reports the first contract violation in the sample, nil when the
// reading is safe to classify.
func (r Reading) Validate() error {
	if r.BatchID == "" {
		return ErrMissingBatchID
	}
	if r.DeviceID == "" {
		return ErrMissingDeviceID
	}
	if math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0) {
		return ErrBadTemperature
	}
	if math.IsNaN(r.Humidity) || math.IsInf(r.Humidity, 0) {
		return ErrBadHumidity
	}
	return nil
}
