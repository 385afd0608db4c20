package types

// Severity is the ordinal anomaly strength. It is distinct from confidence:
// severity says how bad the excursion is, confidence says how sure the
// classifier is about its verdict.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities for max-merging; unknown values rank as none.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Pattern names the detection strategy that produced the verdict.
type Pattern string

const (
	PatternNone               Pattern = "none"
	PatternThresholdViolation Pattern = "threshold_violation"
	PatternSuddenSpike        Pattern = "sudden_spike"
	PatternGradualDrift       Pattern = "gradual_drift"
)

// MLReasons flags which dimensions and strategies triggered.
type MLReasons struct {
	Temperature  bool    `json:"temperature"`
	Humidity     bool    `json:"humidity"`
	SuddenChange bool    `json:"suddenChange"`
	GradualDrift bool    `json:"gradualDrift"`
	Pattern      Pattern `json:"pattern"`
}

// AnomalyVerdict is the classifier output for one reading.
type AnomalyVerdict struct {
	IsAnomaly  bool      `json:"isAnomaly"`
	Severity   Severity  `json:"severity"`
	Confidence float64   `json:"confidence"`
	Reasons    MLReasons `json:"reasons"`
}

// Prediction is the one-step forecast attached to every processed reading.
type Prediction struct {
	NextTemperature float64 `json:"nextTemperature"`
	NextHumidity    float64 `json:"nextHumidity"`
	RiskLevel       float64 `json:"riskLevel"`
}

// MLAnalysis is the full analysis block returned to the ingestion caller.
type MLAnalysis struct {
	IsAnomaly  bool       `json:"isAnomaly"`
	Severity   Severity   `json:"severity"`
	Confidence float64    `json:"confidence"`
	Reasons    MLReasons  `json:"reasons"`
	Prediction Prediction `json:"prediction"`
}

// EnrichedReading is the reading plus its analysis, flattened for the event
// payload contract.
type EnrichedReading struct {
	Reading
	IsAnomaly  bool       `json:"isAnomaly"`
	Severity   Severity   `json:"severity"`
	Confidence float64    `json:"confidence"`
	MLReasons  MLReasons  `json:"mlReasons"`
	Prediction Prediction `json:"prediction"`
}

// Analysis rebuilds the MLAnalysis view of an enriched reading.
func (e EnrichedReading) Analysis() MLAnalysis {
	return MLAnalysis{
		IsAnomaly:  e.IsAnomaly,
		Severity:   e.Severity,
		Confidence: e.Confidence,
		Reasons:    e.MLReasons,
		Prediction: e.Prediction,
	}
}
