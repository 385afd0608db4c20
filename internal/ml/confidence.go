package ml

import (
	"math"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

// scoreConfidence turns classification evidence into a [0,1] confidence.
// Anomalous readings gain certainty from agreeing strategies and deviation
// magnitude; normal readings gain it symmetrically from proximity to the
// adaptive center. Both gain from batch history up to HistoryCap readings.
// Deterministic: same inputs, same score.
func scoreConfidence(verdict types.AnomalyVerdict, signals classifySignals, p ProfileSnapshot, params Params) float64 {
	base := baseConfidence(signals.strategies)

	var deviation float64
	if verdict.IsAnomaly {
		deviation = clamp(signals.dominantDeviation()/(2*params.BandMultiplier), 0, 1)
	} else {
		deviation = 1 - clamp(signals.dominantDeviation()/params.BandMultiplier, 0, 1)
	}

	history := math.Min(1, float64(p.ReadingCount)/float64(params.HistoryCap))

	return clamp(base+params.DeviationWeight*deviation+params.HistoryWeight*history, 0, 1)
}

// baseConfidence maps the number of agreeing strategies to the base score.
func baseConfidence(strategies int) float64 {
	switch {
	case strategies <= 0:
		return 0.3
	case strategies == 1:
		return 0.55
	case strategies == 2:
		return 0.75
	default:
		return 0.9
	}
}
