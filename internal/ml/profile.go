package ml

import (
	"math"
	"time"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

// DimensionState is the adaptive band of one dimension at a point in time.
// Lower/Upper are the effective thresholds, already clamped into the hard
// bounds of the medicine model.
type DimensionState struct {
	Center float64
	Spread float64
	Lower  float64
	Upper  float64
}

// Outside reports whether v escapes the adaptive band.
func (d DimensionState) Outside(v float64) bool { return v < d.Lower || v > d.Upper }

// ProfileSnapshot is a read-only copy of a batch profile, safe to use after
// the per-batch lock is released.
type ProfileSnapshot struct {
	BatchID      string
	Model        types.MedicineModel
	Temperature  DimensionState
	Humidity     DimensionState
	ReadingCount int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// batchProfile is the mutable adaptive state of one batch. All access goes
// through the store's per-batch lock.
type batchProfile struct {
	batchID     string
	model       types.MedicineModel
	temperature dimension
	humidity    dimension
	count       int64
	createdAt   time.Time
	updatedAt   time.Time
}

func newBatchProfile(batchID string, model types.MedicineModel, now time.Time) *batchProfile {
	return &batchProfile{
		batchID:     batchID,
		model:       model,
		temperature: newDimension(model.Temperature),
		humidity:    newDimension(model.Humidity),
		createdAt:   now,
		updatedAt:   now,
	}
}

// newDimension seeds the band at the model's optimal point with an eighth of
// the hard width as initial spread, so the first adaptive band is
// optimal ± width/4 under the default band multiplier.
func newDimension(hard types.Range) dimension {
	return dimension{
		hard:   hard,
		center: hard.Optimal,
		spread: hard.Width() / 8,
	}
}

type dimension struct {
	hard   types.Range
	center float64
	spread float64
}

// adapt moves the EMA center toward x and re-estimates spread as an EMA of
// absolute deviation. The center never leaves the hard bounds and the spread
// stays within [width/40, width/4]: a batch held in a bad state cannot widen
// or shift its band past the medicine's real tolerances.
func (d *dimension) adapt(x, effAlpha float64) {
	d.center += effAlpha * (x - d.center)
	if d.center < d.hard.Min {
		d.center = d.hard.Min
	}
	if d.center > d.hard.Max {
		d.center = d.hard.Max
	}
	d.spread = (1-effAlpha)*d.spread + effAlpha*math.Abs(x-d.center)
	width := d.hard.Width()
	d.spread = clamp(d.spread, width/40, width/4)
}

// state materializes the thresholds for the given band multiplier.
func (d dimension) state(bandMultiplier float64) DimensionState {
	return DimensionState{
		Center: d.center,
		Spread: d.spread,
		Lower:  clamp(d.center-bandMultiplier*d.spread, d.hard.Min, d.hard.Max),
		Upper:  clamp(d.center+bandMultiplier*d.spread, d.hard.Min, d.hard.Max),
	}
}

// adapt applies the post-verdict EMA update. Anomalous readings adapt at a
// damped rate so an excursion cannot quickly normalize itself.
func (p *batchProfile) adapt(r types.Reading, anomalous bool, params Params, now time.Time) {
	effAlpha := params.Alpha
	if anomalous {
		effAlpha *= params.AnomalyDamping
	}
	if effAlpha > 0 {
		p.temperature.adapt(r.Temperature, effAlpha)
		p.humidity.adapt(r.Humidity, effAlpha)
	}
	p.updatedAt = now
}

func (p *batchProfile) snapshot(bandMultiplier float64) ProfileSnapshot {
	return ProfileSnapshot{
		BatchID:      p.batchID,
		Model:        p.model,
		Temperature:  p.temperature.state(bandMultiplier),
		Humidity:     p.humidity.state(bandMultiplier),
		ReadingCount: p.count,
		CreatedAt:    p.createdAt,
		UpdatedAt:    p.updatedAt,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
