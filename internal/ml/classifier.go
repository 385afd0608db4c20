package ml

import (
	"math"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

// classifySignals carries strategy-level detail that the wire verdict does
// not expose, feeding the confidence scorer.
type classifySignals struct {
	strategies    int
	tempDeviation float64
	humDeviation  float64
}

// dominantDeviation picks the stronger normalized deviation, temperature
// first on ties: temperature excursions are the more consequential signal in
// cold-chain storage.
func (s classifySignals) dominantDeviation() float64 {
	if s.tempDeviation >= s.humDeviation {
		return s.tempDeviation
	}
	return s.humDeviation
}

// classify applies the three detection strategies to the newest window
// entry and merges them into a verdict. Confidence is filled in later by the
// scorer; severity is the max across triggered strategies and the pattern
// names the strategy that reached it, threshold violations taking precedence
// over spikes, spikes over drift, when severities tie.
func classify(p ProfileSnapshot, w WindowSnapshot, params Params) (types.AnomalyVerdict, classifySignals) {
	cur := w.Newest()

	tempHard := !p.Model.Temperature.Contains(cur.Temperature)
	humHard := !p.Model.Humidity.Contains(cur.Humidity)
	tempAdaptive := !tempHard && p.Temperature.Outside(cur.Temperature)
	humAdaptive := !humHard && p.Humidity.Outside(cur.Humidity)

	thresholdSev := types.SeverityNone
	switch {
	case tempHard || humHard:
		thresholdSev = types.SeverityHigh
	case tempAdaptive || humAdaptive:
		thresholdSev = types.SeverityMedium
	}

	spikeSev, tempSpike, humSpike := detectSpike(w, p.Model, params)
	driftSev, tempDrift, humDrift := detectDrift(w, p.Model, params)

	severity := maxSeverity(thresholdSev, maxSeverity(spikeSev, driftSev))

	pattern := types.PatternNone
	switch {
	case severity == types.SeverityNone:
	case thresholdSev == severity:
		pattern = types.PatternThresholdViolation
	case spikeSev == severity:
		pattern = types.PatternSuddenSpike
	default:
		pattern = types.PatternGradualDrift
	}

	verdict := types.AnomalyVerdict{
		IsAnomaly: severity != types.SeverityNone,
		Severity:  severity,
		Reasons: types.MLReasons{
			Temperature:  tempHard || tempAdaptive || tempSpike || tempDrift,
			Humidity:     humHard || humAdaptive || humSpike || humDrift,
			SuddenChange: spikeSev != types.SeverityNone,
			GradualDrift: driftSev != types.SeverityNone,
			Pattern:      pattern,
		},
	}

	signals := classifySignals{
		tempDeviation: normalizedDeviation(cur.Temperature, p.Temperature),
		humDeviation:  normalizedDeviation(cur.Humidity, p.Humidity),
	}
	for _, sev := range []types.Severity{thresholdSev, spikeSev, driftSev} {
		if sev != types.SeverityNone {
			signals.strategies++
		}
	}
	return verdict, signals
}

// detectSpike compares the newest value against the mean of the prior window
// entries, per dimension, in units of their standard deviation. The sigma
// floor keeps a flat-lined window from turning sensor noise into a spike.
func detectSpike(w WindowSnapshot, model types.MedicineModel, params Params) (types.Severity, bool, bool) {
	prior := w.Prior()
	if len(prior) < params.SpikeMinPrior {
		return types.SeverityNone, false, false
	}
	cur := w.Newest()

	tempZ := zScore(cur.Temperature, prior.Temperatures(), model.Temperature.Width())
	humZ := zScore(cur.Humidity, prior.Humidities(), model.Humidity.Width())

	sev := types.SeverityNone
	tempHit := tempZ >= params.SpikeSigma
	humHit := humZ >= params.SpikeSigma
	if tempHit || humHit {
		sev = types.SeverityMedium
		if tempZ >= params.SpikeHighSigma || humZ >= params.SpikeHighSigma {
			sev = types.SeverityHigh
		}
	}
	return sev, tempHit, humHit
}

func zScore(current float64, series []float64, hardWidth float64) float64 {
	sd := stddev(series)
	if floor := hardWidth / 100; sd < floor {
		sd = floor
	}
	if sd <= 0 {
		return 0
	}
	return math.Abs(current-mean(series)) / sd
}

// detectDrift extrapolates the window's least-squares trend and flags a
// bound crossing inside the horizon: an early warning before the threshold
// strategy would fire. Values already outside hard bounds are the threshold
// strategy's business.
func detectDrift(w WindowSnapshot, model types.MedicineModel, params Params) (types.Severity, bool, bool) {
	if len(w) < params.DriftMinWindow {
		return types.SeverityNone, false, false
	}
	cur := w.Newest()

	tempSteps := stepsToBound(cur.Temperature, slope(w.Temperatures()), model.Temperature)
	humSteps := stepsToBound(cur.Humidity, slope(w.Humidities()), model.Humidity)

	horizon := float64(params.DriftHorizon)
	tempHit := tempSteps > 0 && tempSteps <= horizon
	humHit := humSteps > 0 && humSteps <= horizon
	if !tempHit && !humHit {
		return types.SeverityNone, false, false
	}

	sev := types.SeverityLow
	if (tempHit && tempSteps <= horizon/2) || (humHit && humSteps <= horizon/2) {
		sev = types.SeverityMedium
	}
	return sev, tempHit, humHit
}

// stepsToBound returns how many window steps until the trend crosses a hard
// bound, or 0 when it never will (flat trend or already outside).
func stepsToBound(current, perStep float64, hard types.Range) float64 {
	if perStep == 0 || !hard.Contains(current) {
		return 0
	}
	if perStep > 0 {
		return (hard.Max - current) / perStep
	}
	return (hard.Min - current) / perStep
}

func normalizedDeviation(v float64, d DimensionState) float64 {
	if d.Spread <= 0 {
		return 0
	}
	return math.Abs(v-d.Center) / d.Spread
}

func maxSeverity(a, b types.Severity) types.Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
