package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/medicine"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/ml"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/realtime"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/stats"
)

func init() { gin.SetMode(gin.TestMode) }

type testEnv struct {
	router *gin.Engine
	hub    *realtime.Hub
}

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

// newTestEnv wires the real pipeline behind a router: registry, store, stats
// aggregator and event hub, with metrics disabled.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := mustTestLogger(t)

	registry := medicine.NewRegistry(log)
	store := ml.NewStore(ml.DefaultParams(), log)
	aggregator := stats.NewAggregator(log)
	hub := realtime.NewHub(log, nil)

	engine, err := ml.NewEngine(ml.EngineDeps{
		Store:     store,
		Resolver:  registry,
		Recorder:  aggregator,
		Publisher: hub,
		Log:       log,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	router := gin.New()
	router.POST("/readings", NewReadingHandler(engine).Ingest)
	statsH := NewStatsHandler(aggregator, registry)
	router.GET("/ml/statistics", statsH.Global)
	router.GET("/ml/batch/:batchId/statistics", statsH.Batch)
	router.GET("/ml/models", NewModelHandler(registry).List)
	router.GET("/ml/stream", NewRealtimeHandler(log, hub).Stream)

	return &testEnv{router: router, hub: hub}
}

func (env *testEnv) postReading(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/readings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

type ingestResponse struct {
	OK   bool `json:"ok"`
	Data struct {
		ID          string  `json:"id"`
		BatchID     string  `json:"batchId"`
		DeviceID    string  `json:"deviceId"`
		Temperature float64 `json:"temperature"`
		Humidity    float64 `json:"humidity"`
	} `json:"data"`
	MLAnalysis struct {
		IsAnomaly  bool    `json:"isAnomaly"`
		Severity   string  `json:"severity"`
		Confidence float64 `json:"confidence"`
		Reasons    struct {
			Pattern     string `json:"pattern"`
			Temperature bool   `json:"temperature"`
			Humidity    bool   `json:"humidity"`
		} `json:"reasons"`
		Prediction struct {
			NextTemperature float64 `json:"nextTemperature"`
			NextHumidity    float64 `json:"nextHumidity"`
			RiskLevel       float64 `json:"riskLevel"`
		} `json:"prediction"`
	} `json:"mlAnalysis"`
}

type errorResponse struct {
	OK    bool `json:"ok"`
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func TestIngestNormalReading(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.postReading(t, `{"batchId":"BATCH-001","deviceId":"dev-1","medicineType":"aspirin","temperature":22,"humidity":50}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d body=%s", rec.Code, rec.Body.String())
	}

	var resp ingestResponse
	decodeJSON(t, rec, &resp)
	if !resp.OK {
		t.Fatalf("expected ok=true, body=%s", rec.Body.String())
	}
	if resp.Data.ID == "" {
		t.Fatalf("stored reading must carry an assigned id")
	}
	if resp.Data.BatchID != "BATCH-001" || resp.Data.Temperature != 22 {
		t.Fatalf("stored reading fields mangled: %+v", resp.Data)
	}
	if resp.MLAnalysis.IsAnomaly {
		t.Fatalf("optimal aspirin conditions flagged anomalous: %+v", resp.MLAnalysis)
	}
	if resp.MLAnalysis.Confidence <= 0 || resp.MLAnalysis.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", resp.MLAnalysis.Confidence)
	}
	if resp.MLAnalysis.Reasons.Pattern == "" {
		t.Fatalf("reasons.pattern must be non-empty")
	}
}

func TestIngestAnomalousReading(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.postReading(t, `{"batchId":"BATCH-002","deviceId":"dev-1","medicineType":"aspirin","temperature":35,"humidity":85}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d body=%s", rec.Code, rec.Body.String())
	}

	var resp ingestResponse
	decodeJSON(t, rec, &resp)
	if !resp.MLAnalysis.IsAnomaly {
		t.Fatalf("hard range violation not flagged: %+v", resp.MLAnalysis)
	}
	if resp.MLAnalysis.Severity != "high" {
		t.Fatalf("expected high severity, got %q", resp.MLAnalysis.Severity)
	}
	if resp.MLAnalysis.Reasons.Pattern != "threshold_violation" {
		t.Fatalf("expected threshold_violation, got %q", resp.MLAnalysis.Reasons.Pattern)
	}
	if !resp.MLAnalysis.Reasons.Temperature || !resp.MLAnalysis.Reasons.Humidity {
		t.Fatalf("both dimensions violated hard bounds: %+v", resp.MLAnalysis.Reasons)
	}
	if resp.MLAnalysis.Prediction.RiskLevel <= 0 || resp.MLAnalysis.Prediction.RiskLevel > 1 {
		t.Fatalf("risk level out of range: %v", resp.MLAnalysis.Prediction.RiskLevel)
	}
}

func TestIngestZeroValuesBind(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// 0°C is inside the default model's hard range, and a literal zero must
	// not be confused with a missing field.
	rec := env.postReading(t, `{"batchId":"BATCH-003","deviceId":"dev-1","temperature":0,"humidity":50}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("zero temperature rejected: status=%d body=%s", rec.Code, rec.Body.String())
	}

	var resp ingestResponse
	decodeJSON(t, rec, &resp)
	if resp.Data.Temperature != 0 {
		t.Fatalf("zero temperature not preserved: %v", resp.Data.Temperature)
	}
}

func TestIngestRejectsMalformedBody(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing deviceId", `{"batchId":"B1","temperature":22,"humidity":50}`},
		{"missing temperature", `{"batchId":"B1","deviceId":"d1","humidity":50}`},
		{"not json", `temperature=22`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := env.postReading(t, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: got=%d body=%s", rec.Code, rec.Body.String())
			}
			var resp errorResponse
			decodeJSON(t, rec, &resp)
			if resp.OK {
				t.Fatalf("error envelope must carry ok=false: %s", rec.Body.String())
			}
			if resp.Error.Code != "invalid_reading" {
				t.Fatalf("unexpected error code: %q", resp.Error.Code)
			}
			if resp.Error.Message == "" {
				t.Fatalf("error message must be populated")
			}
		})
	}
}

func TestGlobalStatisticsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	var before struct {
		Stats struct {
			TotalBatches   int64    `json:"totalBatches"`
			TotalReadings  int64    `json:"totalReadings"`
			MedicineModels []string `json:"medicineModels"`
		} `json:"stats"`
	}
	rec := env.get(t, "/ml/statistics")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	decodeJSON(t, rec, &before)
	if before.Stats.TotalReadings != 0 || before.Stats.TotalBatches != 0 {
		t.Fatalf("fresh engine should report zero totals: %+v", before.Stats)
	}
	if len(before.Stats.MedicineModels) == 0 {
		t.Fatalf("configured model names missing from global stats")
	}

	env.postReading(t, `{"batchId":"B-A","deviceId":"d1","medicineType":"insulin","temperature":5,"humidity":40}`)
	env.postReading(t, `{"batchId":"B-B","deviceId":"d1","medicineType":"insulin","temperature":15,"humidity":70}`)

	var after struct {
		Stats struct {
			TotalBatches       int64   `json:"totalBatches"`
			TotalReadings      int64   `json:"totalReadings"`
			AdaptiveThresholds int     `json:"adaptiveThresholds"`
			AverageConfidence  float64 `json:"averageConfidence"`
		} `json:"stats"`
	}
	rec = env.get(t, "/ml/statistics")
	decodeJSON(t, rec, &after)
	if after.Stats.TotalReadings != 2 || after.Stats.TotalBatches != 2 {
		t.Fatalf("totals not aggregated: %+v", after.Stats)
	}
	if after.Stats.AdaptiveThresholds != 2 {
		t.Fatalf("adaptive threshold count should track live batches: %+v", after.Stats)
	}
	if after.Stats.AverageConfidence <= 0 {
		t.Fatalf("average confidence missing: %+v", after.Stats)
	}
}

func TestBatchStatisticsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/ml/batch/UNSEEN/statistics")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown batch should 404, got %d", rec.Code)
	}
	var errResp errorResponse
	decodeJSON(t, rec, &errResp)
	if errResp.Error.Code != "batch_not_found" {
		t.Fatalf("unexpected error code: %q", errResp.Error.Code)
	}

	env.postReading(t, `{"batchId":"B-77","deviceId":"d1","medicineType":"lisinopril","temperature":25,"humidity":65}`)
	env.postReading(t, `{"batchId":"B-77","deviceId":"d1","medicineType":"lisinopril","temperature":40,"humidity":90}`)

	rec = env.get(t, "/ml/batch/B-77/statistics")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		BatchID string `json:"batchId"`
		Stats   struct {
			TotalReadings      int64   `json:"totalReadings"`
			AnomalyRate        float64 `json:"anomalyRate"`
			AverageTemperature float64 `json:"averageTemperature"`
			MedicineModel      string  `json:"medicineModel"`
			TemperatureRange   struct {
				Min float64 `json:"min"`
				Max float64 `json:"max"`
			} `json:"temperatureRange"`
		} `json:"stats"`
	}
	decodeJSON(t, rec, &resp)
	if resp.BatchID != "B-77" {
		t.Fatalf("batch id not echoed: %q", resp.BatchID)
	}
	if resp.Stats.TotalReadings != 2 || resp.Stats.AnomalyRate != 0.5 {
		t.Fatalf("unexpected rollup: %+v", resp.Stats)
	}
	if resp.Stats.MedicineModel != "lisinopril" {
		t.Fatalf("bound model not reported: %q", resp.Stats.MedicineModel)
	}
	if resp.Stats.TemperatureRange.Min != 25 || resp.Stats.TemperatureRange.Max != 40 {
		t.Fatalf("temperature extrema wrong: %+v", resp.Stats.TemperatureRange)
	}
}

func TestListModels(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/ml/models")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var resp struct {
		Models []struct {
			Name             string `json:"name"`
			TemperatureRange struct {
				Min     float64 `json:"min"`
				Optimal float64 `json:"optimal"`
				Max     float64 `json:"max"`
			} `json:"temperatureRange"`
		} `json:"models"`
	}
	decodeJSON(t, rec, &resp)
	if len(resp.Models) < 4 {
		t.Fatalf("built-in models missing: %+v", resp.Models)
	}
	last := resp.Models[len(resp.Models)-1]
	if last.Name != medicine.DefaultModelName {
		t.Fatalf("fallback model should list last, got %q", last.Name)
	}
	for _, m := range resp.Models {
		if m.TemperatureRange.Min >= m.TemperatureRange.Max {
			t.Fatalf("degenerate temperature range for %q: %+v", m.Name, m.TemperatureRange)
		}
	}
}
