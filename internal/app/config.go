package app

import (
	"strings"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/ml"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/envutil"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
)

type Config struct {
	Port         string
	AllowOrigins []string

	// MedicineModelsPath points at an optional YAML file that extends or
	// overrides the built-in medicine models.
	MedicineModelsPath string

	// RedisAddr enables the cross-instance event bridge; empty disables it.
	RedisAddr string

	ML ml.Params
}

func LoadConfig(log *logger.Logger) Config {
	defaults := ml.DefaultParams()
	cfg := Config{
		Port:               envutil.String("PORT", "8080"),
		AllowOrigins:       splitOrigins(envutil.String("CORS_ALLOW_ORIGINS", "")),
		MedicineModelsPath: envutil.String("MEDICINE_MODELS_PATH", ""),
		RedisAddr:          envutil.String("REDIS_ADDR", ""),
		ML: ml.Params{
			WindowSize:      envutil.Int("ML_WINDOW_SIZE", defaults.WindowSize),
			Alpha:           envutil.Float("ML_ALPHA", defaults.Alpha),
			AnomalyDamping:  envutil.Float("ML_ANOMALY_DAMPING", defaults.AnomalyDamping),
			BandMultiplier:  envutil.Float("ML_BAND_MULTIPLIER", defaults.BandMultiplier),
			SpikeMinPrior:   envutil.Int("ML_SPIKE_MIN_PRIOR", defaults.SpikeMinPrior),
			SpikeSigma:      envutil.Float("ML_SPIKE_SIGMA", defaults.SpikeSigma),
			SpikeHighSigma:  envutil.Float("ML_SPIKE_HIGH_SIGMA", defaults.SpikeHighSigma),
			DriftMinWindow:  envutil.Int("ML_DRIFT_MIN_WINDOW", defaults.DriftMinWindow),
			DriftHorizon:    envutil.Int("ML_DRIFT_HORIZON", defaults.DriftHorizon),
			DeviationWeight: envutil.Float("ML_DEVIATION_WEIGHT", defaults.DeviationWeight),
			HistoryWeight:   envutil.Float("ML_HISTORY_WEIGHT", defaults.HistoryWeight),
			HistoryCap:      envutil.Int("ML_HISTORY_CAP", defaults.HistoryCap),
		},
	}
	if log != nil {
		log.Info("Configuration loaded",
			"port", cfg.Port,
			"redisBridge", cfg.RedisAddr != "",
			"medicineModelsPath", cfg.MedicineModelsPath,
			"windowSize", cfg.ML.WindowSize,
			"alpha", cfg.ML.Alpha,
			"bandMultiplier", cfg.ML.BandMultiplier,
		)
	}
	return cfg
}

func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
