package app

import (
	"reflect"
	"testing"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/ml"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
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

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PORT", "CORS_ALLOW_ORIGINS", "MEDICINE_MODELS_PATH", "REDIS_ADDR",
		"ML_WINDOW_SIZE", "ML_ALPHA", "ML_ANOMALY_DAMPING", "ML_BAND_MULTIPLIER",
		"ML_SPIKE_MIN_PRIOR", "ML_SPIKE_SIGMA", "ML_SPIKE_HIGH_SIGMA",
		"ML_DRIFT_MIN_WINDOW", "ML_DRIFT_HORIZON",
		"ML_DEVIATION_WEIGHT", "ML_HISTORY_WEIGHT", "ML_HISTORY_CAP",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	cfg := LoadConfig(mustTestLogger(t))

	if cfg.Port != "8080" {
		t.Fatalf("default port: got %q", cfg.Port)
	}
	if cfg.AllowOrigins != nil {
		t.Fatalf("expected nil origin override, got %v", cfg.AllowOrigins)
	}
	if cfg.RedisAddr != "" || cfg.MedicineModelsPath != "" {
		t.Fatalf("optional integrations should default off: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.ML, ml.DefaultParams()) {
		t.Fatalf("ML params should match documented defaults: %+v", cfg.ML)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , https://b.example ,")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("ML_WINDOW_SIZE", "5")
	t.Setenv("ML_ALPHA", "0.25")
	t.Setenv("ML_ANOMALY_DAMPING", "0")

	cfg := LoadConfig(mustTestLogger(t))

	if cfg.Port != "9999" {
		t.Fatalf("port override ignored: %q", cfg.Port)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.AllowOrigins, want) {
		t.Fatalf("origin list parsing: got %v want %v", cfg.AllowOrigins, want)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("redis addr override ignored: %q", cfg.RedisAddr)
	}
	if cfg.ML.WindowSize != 5 || cfg.ML.Alpha != 0.25 {
		t.Fatalf("ml tunables not applied: %+v", cfg.ML)
	}
	if cfg.ML.AnomalyDamping != 0 {
		t.Fatalf("explicit zero damping must survive: %v", cfg.ML.AnomalyDamping)
	}
	if cfg.ML.BandMultiplier != ml.DefaultParams().BandMultiplier {
		t.Fatalf("untouched tunables must keep defaults: %+v", cfg.ML)
	}
}
