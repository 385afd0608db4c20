package ml

import (
	"math"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

// Physical plausibility bounds for forecasts. Cold-chain hardware does not
// report outside these, so neither should an extrapolation.
const (
	minForecastTemperature = -30.0
	maxForecastTemperature = 70.0
	minForecastHumidity    = 0.0
	maxForecastHumidity    = 100.0
)

// forecast extrapolates the window trend one step ahead and scores the risk
// of the projected state. Risk is the mean of the verdict's severity risk
// and the projected distance from the model's optimal point, so it rises
// both with how bad the present is and with where the batch is heading.
func forecast(w WindowSnapshot, p ProfileSnapshot, severity types.Severity) types.Prediction {
	cur := w.Newest()

	nextTemp := clamp(cur.Temperature+slope(w.Temperatures()), minForecastTemperature, maxForecastTemperature)
	nextHum := clamp(cur.Humidity+slope(w.Humidities()), minForecastHumidity, maxForecastHumidity)

	risk := (severityRisk(severity) + distanceRisk(nextTemp, nextHum, p.Model)) / 2
	return types.Prediction{
		NextTemperature: nextTemp,
		NextHumidity:    nextHum,
		RiskLevel:       clamp(risk, 0, 1),
	}
}

func severityRisk(s types.Severity) float64 {
	switch s {
	case types.SeverityLow:
		return 0.4
	case types.SeverityMedium:
		return 0.7
	case types.SeverityHigh:
		return 1.0
	default:
		return 0
	}
}

// distanceRisk is the projected distance from optimal normalized by the
// half-width of the allowed range, worst dimension, capped at 1.
func distanceRisk(nextTemp, nextHum float64, m types.MedicineModel) float64 {
	t := normalizedDistance(nextTemp, m.Temperature)
	h := normalizedDistance(nextHum, m.Humidity)
	return math.Min(1, math.Max(t, h))
}

func normalizedDistance(v float64, r types.Range) float64 {
	half := r.Width() / 2
	if half <= 0 {
		return 0
	}
	return math.Abs(v-r.Optimal) / half
}
