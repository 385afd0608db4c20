package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

type webhookRecorder struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (w *webhookRecorder) handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			w.mu.Lock()
			w.bodies = append(w.bodies, body)
			w.mu.Unlock()
		}
		rw.WriteHeader(http.StatusOK)
	}
}

func (w *webhookRecorder) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bodies)
}

func resetAlertState() {
	anomalyAlerts.mu.Lock()
	anomalyAlerts.last = map[string]time.Time{}
	anomalyAlerts.mu.Unlock()
}

func highAnomaly(batchID string) types.EventMessage {
	return types.EventMessage{
		Type: types.EventAnomaly,
		Payload: types.EnrichedReading{
			Reading:   types.Reading{ID: "r1", BatchID: batchID, DeviceID: "d1", Temperature: 35, Humidity: 85},
			IsAnomaly: true,
			Severity:  types.SeverityHigh,
		},
	}
}

func TestReportAnomalyDisabledByDefault(t *testing.T) {
	resetAlertState()
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	t.Setenv("ANOMALY_ALERTS_ENABLED", "")
	t.Setenv("ANOMALY_ALERT_WEBHOOK_URL", srv.URL)

	ReportAnomaly(context.Background(), mustTestLogger(t), highAnomaly("B-1"))
	if rec.count() != 0 {
		t.Fatalf("alert sent while disabled")
	}
}

func TestReportAnomalyPostsWebhook(t *testing.T) {
	resetAlertState()
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	t.Setenv("ANOMALY_ALERTS_ENABLED", "true")
	t.Setenv("ANOMALY_ALERT_WEBHOOK_URL", srv.URL)
	t.Setenv("ANOMALY_ALERT_MIN_SEVERITY", "high")

	ReportAnomaly(context.Background(), mustTestLogger(t), highAnomaly("B-2"))
	if rec.count() != 1 {
		t.Fatalf("expected one alert, got %d", rec.count())
	}

	body := rec.bodies[0]
	if body["batchId"] != "B-2" || body["severity"] != "high" {
		t.Fatalf("alert payload wrong: %+v", body)
	}
}

func TestReportAnomalyHonorsMinSeverity(t *testing.T) {
	resetAlertState()
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	t.Setenv("ANOMALY_ALERTS_ENABLED", "true")
	t.Setenv("ANOMALY_ALERT_WEBHOOK_URL", srv.URL)
	t.Setenv("ANOMALY_ALERT_MIN_SEVERITY", "high")

	event := highAnomaly("B-3")
	event.Payload.Severity = types.SeverityMedium
	ReportAnomaly(context.Background(), mustTestLogger(t), event)
	if rec.count() != 0 {
		t.Fatalf("medium severity should not alert at high threshold")
	}

	t.Setenv("ANOMALY_ALERT_MIN_SEVERITY", "medium")
	ReportAnomaly(context.Background(), mustTestLogger(t), event)
	if rec.count() != 1 {
		t.Fatalf("medium severity should alert at medium threshold, got %d", rec.count())
	}
}

func TestReportAnomalyCooldownPerBatch(t *testing.T) {
	resetAlertState()
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	t.Setenv("ANOMALY_ALERTS_ENABLED", "true")
	t.Setenv("ANOMALY_ALERT_WEBHOOK_URL", srv.URL)
	t.Setenv("ANOMALY_ALERT_MIN_SEVERITY", "high")
	t.Setenv("ANOMALY_ALERT_MIN_INTERVAL_SECONDS", "600")

	log := mustTestLogger(t)
	ReportAnomaly(context.Background(), log, highAnomaly("B-4"))
	ReportAnomaly(context.Background(), log, highAnomaly("B-4"))
	if rec.count() != 1 {
		t.Fatalf("same batch should alert once inside the cooldown, got %d", rec.count())
	}

	// A different batch is rate-limited independently.
	ReportAnomaly(context.Background(), log, highAnomaly("B-5"))
	if rec.count() != 2 {
		t.Fatalf("distinct batch suppressed by unrelated cooldown, got %d", rec.count())
	}
}
