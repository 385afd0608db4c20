package medicine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

type modelFile struct {
	Models  []types.MedicineModel `yaml:"models"`
	Default *types.MedicineModel  `yaml:"default"`
}

// LoadFile merges models from a YAML file into the registry. Entries with an
// invalid tolerance range are skipped with a warning; a model whose name
// matches an existing one replaces it. An unreadable or unparsable file is
// an error: an explicitly configured file must load.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read medicine models: %w", err)
	}
	var doc modelFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse medicine models: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	for _, m := range doc.Models {
		if err := validateModel(m); err != nil {
			r.log.Warn("skipping invalid medicine model", "name", m.Name, "error", err.Error())
			continue
		}
		r.models[normalizeName(m.Name)] = m
		loaded++
	}
	if doc.Default != nil {
		d := *doc.Default
		d.Name = DefaultModelName
		if err := validateModel(d); err != nil {
			r.log.Warn("skipping invalid default model override", "error", err.Error())
		} else {
			r.fallback = d
		}
	}
	r.log.Info("medicine models loaded", "path", path, "loaded", loaded, "total", len(r.models))
	return nil
}

func validateModel(m types.MedicineModel) error {
	if normalizeName(m.Name) == "" {
		return fmt.Errorf("model name is required")
	}
	if err := validateRange("temperature", m.Temperature); err != nil {
		return err
	}
	return validateRange("humidity", m.Humidity)
}

func validateRange(dim string, r types.Range) error {
	if !(r.Min < r.Optimal && r.Optimal < r.Max) {
		return fmt.Errorf("%s range must satisfy min < optimal < max, got {%v %v %v}", dim, r.Min, r.Optimal, r.Max)
	}
	return nil
}
