package stats

import (
	"sync"
	"time"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

// Aggregator keeps running rollups of every classified reading, per batch and
// engine-wide. All updates are constant-time sums and extrema, so snapshot
// cost never grows with history.
type Aggregator struct {
	log *logger.Logger

	mu      sync.RWMutex
	global  bucket
	batches map[string]*batchBucket
}

type bucket struct {
	readings      int64
	anomalies     int64
	tempSum       float64
	humSum        float64
	confidenceSum float64
	tempRange     extrema
	humRange      extrema
}

func (b *bucket) observe(r types.Reading, v types.AnomalyVerdict) {
	b.readings++
	if v.IsAnomaly {
		b.anomalies++
	}
	b.tempSum += r.Temperature
	b.humSum += r.Humidity
	b.confidenceSum += v.Confidence
	b.tempRange.observe(r.Temperature)
	b.humRange.observe(r.Humidity)
}

type batchBucket struct {
	bucket
	modelName string
	lastAt    time.Time
}

// extrema tracks an observed min/max; the zero value means nothing observed.
type extrema struct {
	seen bool
	min  float64
	max  float64
}

func (e *extrema) observe(v float64) {
	if !e.seen {
		e.seen = true
		e.min, e.max = v, v
		return
	}
	if v < e.min {
		e.min = v
	}
	if v > e.max {
		e.max = v
	}
}

func (e extrema) minMax() types.MinMax {
	if !e.seen {
		return types.MinMax{}
	}
	return types.MinMax{Min: e.min, Max: e.max}
}

func NewAggregator(log *logger.Logger) *Aggregator {
	return &Aggregator{
		log:     log.With("component", "StatsAggregator"),
		batches: make(map[string]*batchBucket),
	}
}

// Record folds one verdict into the per-batch and global rollups. The model
// name binds the batch on first contact, matching the profile store.
func (a *Aggregator) Record(batchID, modelName string, r types.Reading, v types.AnomalyVerdict) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.batches[batchID]
	if !ok {
		b = &batchBucket{modelName: modelName}
		a.batches[batchID] = b
		a.log.Debug("batch rollup created", "batchId", batchID, "model", modelName)
	}
	b.observe(r, v)
	b.lastAt = r.Timestamp
	a.global.observe(r, v)
}

// Batch returns the rollup for one batch, false when it has no readings.
func (a *Aggregator) Batch(batchID string) (types.BatchStatistics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	b, ok := a.batches[batchID]
	if !ok {
		return types.BatchStatistics{}, false
	}
	return types.BatchStatistics{
		TotalReadings:      b.readings,
		AnomalyCount:       b.anomalies,
		AnomalyRate:        ratio(b.anomalies, b.readings),
		AverageTemperature: average(b.tempSum, b.readings),
		AverageHumidity:    average(b.humSum, b.readings),
		AverageConfidence:  average(b.confidenceSum, b.readings),
		TemperatureRange:   b.tempRange.minMax(),
		HumidityRange:      b.humRange.minMax(),
		MedicineModel:      b.modelName,
		LastReadingAt:      b.lastAt,
	}, true
}

// Global returns the engine-wide rollup. The configured model names come from
// the caller so the aggregator stays ignorant of the registry.
func (a *Aggregator) Global(modelNames []string) types.GlobalStatistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return types.GlobalStatistics{
		TotalBatches:       int64(len(a.batches)),
		TotalReadings:      a.global.readings,
		TotalAnomalies:     a.global.anomalies,
		AnomalyRate:        ratio(a.global.anomalies, a.global.readings),
		AdaptiveThresholds: len(a.batches),
		AverageConfidence:  average(a.global.confidenceSum, a.global.readings),
		TemperatureRange:   a.global.tempRange.minMax(),
		HumidityRange:      a.global.humRange.minMax(),
		MedicineModels:     modelNames,
	}
}

// BatchCount reports how many batches have at least one reading.
func (a *Aggregator) BatchCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.batches)
}

func ratio(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

func average(sum float64, count int64) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
