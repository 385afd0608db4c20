package types

// Range is a tolerance band for one measured dimension.
// Invariant: Min < Optimal < Max.
type Range struct {
	Min     float64 `json:"min" yaml:"min"`
	Optimal float64 `json:"optimal" yaml:"optimal"`
	Max     float64 `json:"max" yaml:"max"`
}

func (r Range) Width() float64 { return r.Max - r.Min }

// Contains reports whether v lies inside the hard bounds, inclusive.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// MedicineModel holds the hard storage tolerances for one medicine type.
// Models are loaded at startup and read-only afterwards.
type MedicineModel struct {
	Name        string `json:"name" yaml:"name"`
	Temperature Range  `json:"temperatureRange" yaml:"temperature"`
	Humidity    Range  `json:"humidityRange" yaml:"humidity"`
}
