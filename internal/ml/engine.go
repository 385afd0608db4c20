package ml

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/observability"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/ctxutil"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

// ModelResolver maps a medicine type to its tolerance model.
type ModelResolver interface {
	Resolve(medicineType string) types.MedicineModel
}

// Recorder receives every classified reading for aggregation.
type Recorder interface {
	Record(batchID, modelName string, r types.Reading, v types.AnomalyVerdict)
}

// Publisher fans enriched readings out to subscribers. Implementations must
// not block the caller.
type Publisher interface {
	Publish(msg types.EventMessage)
}

type EngineDeps struct {
	Store     *Store
	Resolver  ModelResolver
	Recorder  Recorder
	Publisher Publisher
	Metrics   *observability.Metrics
	Log       *logger.Logger
}

// Engine runs one reading through the full pipeline: resolve model, observe
// under the batch lock, score, forecast, then aggregate and publish after
// the lock is released.
type Engine struct {
	store     *Store
	resolver  ModelResolver
	recorder  Recorder
	publisher Publisher
	metrics   *observability.Metrics
	log       *logger.Logger
}

func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("ml: missing store")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("ml: missing model resolver")
	}
	if deps.Log == nil {
		return nil, fmt.Errorf("ml: missing logger")
	}
	return &Engine{
		store:     deps.Store,
		resolver:  deps.Resolver,
		recorder:  deps.Recorder,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		log:       deps.Log.With("component", "MLEngine"),
	}, nil
}

// Process classifies one reading and returns it enriched with the verdict,
// confidence and forecast. Input is validated again here even though the
// transport already did: the classifier must never see a non-finite value.
func (e *Engine) Process(ctx context.Context, r types.Reading) (types.EnrichedReading, error) {
	if err := r.Validate(); err != nil {
		e.metrics.IncReadingRejected()
		return types.EnrichedReading{}, err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	} else {
		r.Timestamp = r.Timestamp.UTC()
	}

	model := e.resolver.Resolve(r.MedicineType)
	params := e.store.Params()

	var signals classifySignals
	obs := e.store.Observe(model, r, func(p ProfileSnapshot, w WindowSnapshot) types.AnomalyVerdict {
		verdict, sig := classify(p, w, params)
		signals = sig
		return verdict
	})

	verdict := obs.Verdict
	verdict.Confidence = scoreConfidence(verdict, signals, obs.Profile, params)
	prediction := forecast(obs.Window, obs.Profile, verdict.Severity)

	enriched := types.EnrichedReading{
		Reading:    r,
		IsAnomaly:  verdict.IsAnomaly,
		Severity:   verdict.Severity,
		Confidence: verdict.Confidence,
		MLReasons:  verdict.Reasons,
		Prediction: prediction,
	}

	// Aggregation and fan-out run after the per-batch lock is released, so
	// a slow subscriber cannot stall the next reading for this batch.
	if e.recorder != nil {
		e.recorder.Record(r.BatchID, model.Name, r, verdict)
	}
	if e.publisher != nil {
		e.publisher.Publish(types.EventMessage{Type: types.EventReading, Payload: enriched})
		if verdict.IsAnomaly {
			e.publisher.Publish(types.EventMessage{Type: types.EventAnomaly, Payload: enriched})
		}
	}
	e.metrics.ObserveReading(string(verdict.Severity), string(verdict.Reasons.Pattern), verdict.Confidence, prediction.RiskLevel)
	e.metrics.SetBatchProfiles(e.store.ProfileCount())

	if verdict.IsAnomaly {
		fields := []interface{}{
			"batchId", r.BatchID,
			"deviceId", r.DeviceID,
			"model", model.Name,
			"severity", verdict.Severity,
			"pattern", verdict.Reasons.Pattern,
			"confidence", verdict.Confidence,
			"riskLevel", prediction.RiskLevel,
		}
		fields = append(fields, ctxutil.LogFields(ctx)...)
		e.log.Info("anomalous reading", fields...)
	} else {
		e.log.Debug("reading processed", "batchId", r.BatchID, "deviceId", r.DeviceID, "model", model.Name)
	}
	return enriched, nil
}

// Store exposes the profile store for read-side consumers.
func (e *Engine) Store() *Store { return e.store }
