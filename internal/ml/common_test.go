package ml

import (
	"sync"
	"testing"
	"time"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func aspirinModel() types.MedicineModel {
	return types.MedicineModel{
		Name:        "aspirin",
		Temperature: types.Range{Min: 15, Optimal: 22, Max: 30},
		Humidity:    types.Range{Min: 30, Optimal: 50, Max: 65},
	}
}

func insulinModel() types.MedicineModel {
	return types.MedicineModel{
		Name:        "insulin",
		Temperature: types.Range{Min: 2, Optimal: 5, Max: 8},
		Humidity:    types.Range{Min: 25, Optimal: 40, Max: 60},
	}
}

func testReading(batchID string, temp, hum float64) types.Reading {
	return types.Reading{
		ID:          "r-test",
		BatchID:     batchID,
		DeviceID:    "sensor-1",
		Temperature: temp,
		Humidity:    hum,
		Timestamp:   time.Now().UTC(),
	}
}

// realClassify wires the production classifier into Store.Observe the same
// way the engine does.
func realClassify(params Params) ClassifyFunc {
	return func(p ProfileSnapshot, w WindowSnapshot) types.AnomalyVerdict {
		verdict, _ := classify(p, w, params)
		return verdict
	}
}

// tempWindow builds a snapshot from a temperature series with humidity held
// at the given constant.
func tempWindow(hum float64, temps ...float64) WindowSnapshot {
	w := make(WindowSnapshot, 0, len(temps))
	at := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	for i, v := range temps {
		w = append(w, Sample{Temperature: v, Humidity: hum, At: at.Add(time.Duration(i) * time.Minute)})
	}
	return w
}

type recordedCall struct {
	batchID   string
	modelName string
	reading   types.Reading
	verdict   types.AnomalyVerdict
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeRecorder) Record(batchID, modelName string, r types.Reading, v types.AnomalyVerdict) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{batchID: batchID, modelName: modelName, reading: r, verdict: v})
}

func (f *fakeRecorder) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []types.EventMessage
}

func (f *fakePublisher) Publish(msg types.EventMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, msg)
}

func (f *fakePublisher) snapshot() []types.EventMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.EventMessage, len(f.events))
	copy(out, f.events)
	return out
}
