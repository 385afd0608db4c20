package medicine

import (
	"sort"
	"strings"
	"sync"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

// DefaultModelName is the fallback profile used when a medicine type has no
// configured model. Wide bounds: unknown medicines lose precision, never
// ingestion.
const DefaultModelName = "default"

// Registry resolves medicine types to tolerance models. Models are seeded at
// construction, optionally extended from YAML, and read-only while serving.
type Registry struct {
	mu       sync.RWMutex
	log      *logger.Logger
	models   map[string]types.MedicineModel
	fallback types.MedicineModel
}

func NewRegistry(log *logger.Logger) *Registry {
	r := &Registry{
		log:    log.With("component", "MedicineRegistry"),
		models: make(map[string]types.MedicineModel),
	}
	for _, m := range builtinModels() {
		r.models[normalizeName(m.Name)] = m
	}
	r.fallback = builtinDefault()
	return r
}

func builtinModels() []types.MedicineModel {
	return []types.MedicineModel{
		{
			Name:        "aspirin",
			Temperature: types.Range{Min: 15, Optimal: 22, Max: 30},
			Humidity:    types.Range{Min: 30, Optimal: 50, Max: 65},
		},
		{
			Name:        "insulin",
			Temperature: types.Range{Min: 2, Optimal: 5, Max: 8},
			Humidity:    types.Range{Min: 25, Optimal: 40, Max: 60},
		},
		{
			Name:        "lisinopril",
			Temperature: types.Range{Min: 15, Optimal: 22, Max: 30},
			Humidity:    types.Range{Min: 35, Optimal: 55, Max: 75},
		},
	}
}

func builtinDefault() types.MedicineModel {
	return types.MedicineModel{
		Name:        DefaultModelName,
		Temperature: types.Range{Min: 0, Optimal: 20, Max: 35},
		Humidity:    types.Range{Min: 20, Optimal: 50, Max: 80},
	}
}

// Resolve returns the model for a medicine type: case-insensitive exact
// match, then substring match either way ("Aspirin 100mg" resolves to
// aspirin), else the default model. Resolution never fails.
func (r *Registry) Resolve(medicineType string) types.MedicineModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := normalizeName(medicineType)
	if key == "" {
		return r.fallback
	}
	if m, ok := r.models[key]; ok {
		return m
	}
	if m, ok := r.fuzzyMatch(key); ok {
		return m
	}
	r.log.Debug("no model for medicine type, using default", "medicineType", medicineType)
	return r.fallback
}

// fuzzyMatch prefers the longest-named candidate so "insulin glargine"
// beats a shorter accidental substring; ties break lexicographically for
// determinism. Caller holds the read lock.
func (r *Registry) fuzzyMatch(key string) (types.MedicineModel, bool) {
	var (
		best  types.MedicineModel
		found bool
	)
	for name, m := range r.models {
		if !strings.Contains(key, name) && !strings.Contains(name, key) {
			continue
		}
		if !found || len(m.Name) > len(best.Name) || (len(m.Name) == len(best.Name) && m.Name < best.Name) {
			best = m
			found = true
		}
	}
	return best, found
}

// Default returns the fallback model.
func (r *Registry) Default() types.MedicineModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// Names returns the configured model names, sorted. The default fallback is
// not a configured medicine and is excluded.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for _, m := range r.models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// Models returns the configured models sorted by name, default last.
func (r *Registry) Models() []types.MedicineModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.MedicineModel, 0, len(r.models)+1)
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	out = append(out, r.fallback)
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
