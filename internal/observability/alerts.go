package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/ctxutil"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/envutil"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

type anomalyAlertState struct {
	mu   sync.Mutex
	last map[string]time.Time
}

var anomalyAlerts anomalyAlertState

// ReportAnomaly posts an anomaly event to the configured webhook. Alerts are
// rate-limited per batch so a single mistreated batch does not flood the
// receiver while distinct batches still alert independently. Callers must
// keep this out of the ingestion path; it performs network I/O.
func ReportAnomaly(ctx context.Context, log *logger.Logger, event types.EventMessage) {
	if !envutil.Bool("ANOMALY_ALERTS_ENABLED", false) {
		return
	}
	webhook := envutil.String("ANOMALY_ALERT_WEBHOOK_URL", "")
	if webhook == "" {
		return
	}
	if event.Payload.Severity.Rank() < alertMinSeverity().Rank() {
		return
	}

	key := event.Payload.BatchID
	anomalyAlerts.mu.Lock()
	if anomalyAlerts.last == nil {
		anomalyAlerts.last = map[string]time.Time{}
	}
	last := anomalyAlerts.last[key]
	if !last.IsZero() && time.Since(last) < alertMinInterval() {
		anomalyAlerts.mu.Unlock()
		return
	}
	anomalyAlerts.last[key] = time.Now()
	anomalyAlerts.mu.Unlock()

	meta := map[string]any{}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			meta["trace_id"] = td.TraceID
		}
		if td.RequestID != "" {
			meta["request_id"] = td.RequestID
		}
	}
	payload := map[string]any{
		"title":     "Cold-chain anomaly detected",
		"batchId":   event.Payload.BatchID,
		"severity":  event.Payload.Severity,
		"event":     event,
		"meta":      meta,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		if log != nil {
			log.Warn("anomaly alert request build failed", "error", err)
		}
		return
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		if log != nil {
			log.Warn("anomaly alert post failed", "error", err)
		}
		return
	}
	_ = resp.Body.Close()
	if log != nil {
		log.Info("anomaly alert sent", "batchId", event.Payload.BatchID, "severity", event.Payload.Severity, "status", resp.StatusCode)
	}
}

func alertMinSeverity() types.Severity {
	switch types.Severity(envutil.String("ANOMALY_ALERT_MIN_SEVERITY", string(types.SeverityHigh))) {
	case types.SeverityLow:
		return types.SeverityLow
	case types.SeverityMedium:
		return types.SeverityMedium
	default:
		return types.SeverityHigh
	}
}

func alertMinInterval() time.Duration {
	seconds := envutil.Int("ANOMALY_ALERT_MIN_INTERVAL_SECONDS", 600)
	if seconds <= 0 {
		seconds = 600
	}
	return time.Duration(seconds) * time.Second
}
