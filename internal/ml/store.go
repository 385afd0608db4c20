package ml

import (
	"sync"
	"time"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

// ClassifyFunc judges one reading against the profile and window state it
// arrived into. It runs under the per-batch lock and must not block.
type ClassifyFunc func(profile ProfileSnapshot, window WindowSnapshot) types.AnomalyVerdict

// Observation is everything Observe learned about one reading. Profile and
// Window are the classification-time snapshots, immutable value copies.
type Observation struct {
	Verdict types.AnomalyVerdict
	Profile ProfileSnapshot
	Window  WindowSnapshot
}

// Store owns every batch profile and rolling window, keyed by batchId.
// Same-batch observations are serialized by a per-batch mutex; different
// batches proceed in parallel. Entries live for the process lifetime.
type Store struct {
	params Params
	log    *logger.Logger

	mu      sync.RWMutex
	batches map[string]*batchEntry
}

type batchEntry struct {
	mu      sync.Mutex
	profile *batchProfile
	window  *rollingWindow
}

func NewStore(params Params, log *logger.Logger) *Store {
	return &Store{
		params:  params.withDefaults(),
		log:     log.With("component", "BatchProfileStore"),
		batches: make(map[string]*batchEntry),
	}
}

// entry returns the state for a batch, creating it lazily. Double-checked
// under the registry lock so concurrent first readings create exactly one.
func (s *Store) entry(batchID string, model types.MedicineModel, now time.Time) *batchEntry {
	s.mu.RLock()
	e, ok := s.batches[batchID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.batches[batchID]; ok {
		return e
	}
	e = &batchEntry{
		profile: newBatchProfile(batchID, model, now),
		window:  newRollingWindow(s.params.WindowSize),
	}
	s.batches[batchID] = e
	s.log.Debug("batch profile created", "batchId", batchID, "model", model.Name)
	return e
}

// Observe runs one reading through its batch under that batch's lock:
// window append, classification against the pre-update profile, then the
// EMA update. Ordering matters: a reading must not adapt the thresholds it
// is judged against, or it could soften its own verdict.
//
// The model binds the profile on first contact with a batch; a different
// medicine type on later readings does not rebind it.
func (s *Store) Observe(model types.MedicineModel, r types.Reading, classify ClassifyFunc) Observation {
	now := time.Now().UTC()
	e := s.entry(r.BatchID, model, now)

	e.mu.Lock()
	e.profile.count++
	e.window.append(Sample{Temperature: r.Temperature, Humidity: r.Humidity, At: r.Timestamp})
	profile := e.profile.snapshot(s.params.BandMultiplier)
	window := e.window.snapshot()
	verdict := classify(profile, window)
	e.profile.adapt(r, verdict.IsAnomaly, s.params, now)
	e.mu.Unlock()

	return Observation{Verdict: verdict, Profile: profile, Window: window}
}

// Profile returns the current snapshot for a batch, false when the batch has
// never been observed.
func (s *Store) Profile(batchID string) (ProfileSnapshot, bool) {
	s.mu.RLock()
	e, ok := s.batches[batchID]
	s.mu.RUnlock()
	if !ok {
		return ProfileSnapshot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.snapshot(s.params.BandMultiplier), true
}

// ProfileCount reports how many batch profiles are live.
func (s *Store) ProfileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.batches)
}

func (s *Store) Params() Params { return s.params }
