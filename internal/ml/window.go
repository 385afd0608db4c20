package ml

import (
	"math"
	"time"
)

// Sample is one window entry, value-copied into snapshots so readers never
// share memory with the store.
type Sample struct {
	Temperature float64
	Humidity    float64
	At          time.Time
}

// WindowSnapshot is the recent history of one batch, most-recent-last.
type WindowSnapshot []Sample

func (w WindowSnapshot) Newest() Sample { return w[len(w)-1] }

// Prior returns every sample except the newest.
func (w WindowSnapshot) Prior() WindowSnapshot {
	if len(w) == 0 {
		return nil
	}
	return w[:len(w)-1]
}

// Temperatures extracts the temperature series in window order.
func (w WindowSnapshot) Temperatures() []float64 {
	out := make([]float64, len(w))
	for i, s := range w {
		out[i] = s.Temperature
	}
	return out
}

// Humidities extracts the humidity series in window order.
func (w WindowSnapshot) Humidities() []float64 {
	out := make([]float64, len(w))
	for i, s := range w {
		out[i] = s.Humidity
	}
	return out
}

// rollingWindow is a fixed-capacity FIFO of recent samples. Not safe for
// concurrent use; the store serializes access per batch.
type rollingWindow struct {
	capacity int
	samples  []Sample
}

func newRollingWindow(capacity int) *rollingWindow {
	if capacity <= 0 {
		capacity = defaultWindowSize
	}
	return &rollingWindow{
		capacity: capacity,
		samples:  make([]Sample, 0, capacity),
	}
}

func (w *rollingWindow) append(s Sample) {
	if len(w.samples) == w.capacity {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.capacity-1]
	}
	w.samples = append(w.samples, s)
}

func (w *rollingWindow) snapshot() WindowSnapshot {
	out := make(WindowSnapshot, len(w.samples))
	copy(out, w.samples)
	return out
}

func (w *rollingWindow) len() int { return len(w.samples) }

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// slope is the least-squares trend of the series per step, index-based:
// window entries are treated as equally spaced regardless of wall-clock
// jitter between arrivals.
func slope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	meanX := float64(n-1) / 2
	meanY := mean(values)
	num := 0.0
	den := 0.0
	for i, v := range values {
		dx := float64(i) - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
