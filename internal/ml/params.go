package ml

const (
	defaultWindowSize      = 20
	defaultAlpha           = 0.1
	defaultAnomalyDamping  = 0.5
	defaultBandMultiplier  = 2.0
	defaultSpikeMinPrior   = 3
	defaultSpikeSigma      = 3.0
	defaultSpikeHighSigma  = 4.5
	defaultDriftMinWindow  = 5
	defaultDriftHorizon    = 5
	defaultDeviationWeight = 0.25
	defaultHistoryWeight   = 0.15
	defaultHistoryCap      = 50
)

// Params are the engine tunables. Start from DefaultParams and override;
// withDefaults repairs structurally invalid values but keeps an explicit
// AnomalyDamping of zero, which is a meaningful setting (freeze on anomaly).
type Params struct {
	// WindowSize bounds the per-batch rolling history.
	WindowSize int

	// Alpha is the EMA smoothing factor for the adaptive center and spread.
	Alpha float64
	// AnomalyDamping scales Alpha when the reading was judged anomalous.
	// 0 freezes the profile on anomalies, 1 adapts at full rate. Keeping it
	// below 1 stops a mistreated batch from normalizing its own excursion.
	AnomalyDamping float64
	// BandMultiplier converts spread into the adaptive threshold half-width.
	BandMultiplier float64

	// SpikeMinPrior is the minimum number of prior window entries before the
	// spike strategy engages.
	SpikeMinPrior int
	// SpikeSigma is the z-score that flags a sudden spike; SpikeHighSigma
	// escalates it to high severity.
	SpikeSigma     float64
	SpikeHighSigma float64

	// DriftMinWindow is the minimum window length before the drift strategy
	// engages; DriftHorizon is how many steps ahead the trend is projected.
	DriftMinWindow int
	DriftHorizon   int

	// DeviationWeight and HistoryWeight are the confidence boosts; HistoryCap
	// is the reading count at which the history boost saturates.
	DeviationWeight float64
	HistoryWeight   float64
	HistoryCap      int
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		WindowSize:      defaultWindowSize,
		Alpha:           defaultAlpha,
		AnomalyDamping:  defaultAnomalyDamping,
		BandMultiplier:  defaultBandMultiplier,
		SpikeMinPrior:   defaultSpikeMinPrior,
		SpikeSigma:      defaultSpikeSigma,
		SpikeHighSigma:  defaultSpikeHighSigma,
		DriftMinWindow:  defaultDriftMinWindow,
		DriftHorizon:    defaultDriftHorizon,
		DeviationWeight: defaultDeviationWeight,
		HistoryWeight:   defaultHistoryWeight,
		HistoryCap:      defaultHistoryCap,
	}
}

// withDefaults repairs invalid fields. Damping is clamped, not defaulted:
// adapting faster on anomalies is never wanted, freezing is legitimate.
func (p Params) withDefaults() Params {
	if p.WindowSize <= 0 {
		p.WindowSize = defaultWindowSize
	}
	if p.Alpha <= 0 || p.Alpha > 1 {
		p.Alpha = defaultAlpha
	}
	if p.AnomalyDamping < 0 {
		p.AnomalyDamping = 0
	}
	if p.AnomalyDamping > 1 {
		p.AnomalyDamping = 1
	}
	if p.BandMultiplier <= 0 {
		p.BandMultiplier = defaultBandMultiplier
	}
	if p.SpikeMinPrior <= 0 {
		p.SpikeMinPrior = defaultSpikeMinPrior
	}
	if p.SpikeSigma <= 0 {
		p.SpikeSigma = defaultSpikeSigma
	}
	if p.SpikeHighSigma <= p.SpikeSigma {
		p.SpikeHighSigma = p.SpikeSigma * 1.5
	}
	if p.DriftMinWindow <= 0 {
		p.DriftMinWindow = defaultDriftMinWindow
	}
	if p.DriftHorizon <= 0 {
		p.DriftHorizon = defaultDriftHorizon
	}
	if p.DeviationWeight <= 0 {
		p.DeviationWeight = defaultDeviationWeight
	}
	if p.HistoryWeight <= 0 {
		p.HistoryWeight = defaultHistoryWeight
	}
	if p.HistoryCap <= 0 {
		p.HistoryCap = defaultHistoryCap
	}
	return p
}
