package types

import "time"

// MinMax is an observed value range.
type MinMax struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// BatchStatistics is the per-batch rollup snapshot.
type BatchStatistics struct {
	TotalReadings      int64     `json:"totalReadings"`
	AnomalyCount       int64     `json:"anomalyCount"`
	AnomalyRate        float64   `json:"anomalyRate"`
	AverageTemperature float64   `json:"averageTemperature"`
	AverageHumidity    float64   `json:"averageHumidity"`
	AverageConfidence  float64   `json:"averageConfidence"`
	TemperatureRange   MinMax    `json:"temperatureRange"`
	HumidityRange      MinMax    `json:"humidityRange"`
	MedicineModel      string    `json:"medicineModel"`
	LastReadingAt      time.Time `json:"lastReadingAt"`
}

// GlobalStatistics is the engine-wide rollup snapshot.
type GlobalStatistics struct {
	TotalBatches       int64    `json:"totalBatches"`
	TotalReadings      int64    `json:"totalReadings"`
	TotalAnomalies     int64    `json:"totalAnomalies"`
	AnomalyRate        float64  `json:"anomalyRate"`
	AdaptiveThresholds int      `json:"adaptiveThresholds"`
	AverageConfidence  float64  `json:"averageConfidence"`
	TemperatureRange   MinMax   `json:"temperatureRange"`
	HumidityRange      MinMax   `json:"humidityRange"`
	MedicineModels     []string `json:"medicineModels"`
}
