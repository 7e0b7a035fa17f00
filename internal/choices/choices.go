package choices

import (
	"encoding/json"
	"fmt"
	"os"
)

// Well-known field names inside the shared config. The same file is
// consumed by the incident form front end, so these keys are a fixed
// external contract.
const (
	FieldLevels            = "levels"
	FieldScopes            = "scopes"
	FieldTypes             = "types"
	FieldStatuses          = "statuses"
	FieldImpactOptions     = "impactOptions"
	FieldTimeFormats       = "timeFormats"
	FieldDetectionSources  = "detectionSources"
	FieldUpdateTypes       = "updateTypes"
	FieldImpactedLocations = "impactedLocations"
	FieldImpactedParties   = "impactedParties"
)

// Choice is a single (value, display-label) pair.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Registry holds the choice sets loaded from the shared config file.
// It is constructed once at startup and read-only afterwards.
type Registry struct {
	fields map[string][]Choice
	values map[string]map[string]struct{}
}

type sharedConfig struct {
	Incident map[string][]Choice `json:"incident"`
}

// Load reads and parses the shared config file. Callers are expected to
// treat an error as fatal: the service must not start without a valid
// choice-set contract.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shared config %s: %w", path, err)
	}

	var cfg sharedConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse shared config %s: %w", path, err)
	}
	if len(cfg.Incident) == 0 {
		return nil, fmt.Errorf("shared config %s: missing incident section", path)
	}

	reg := &Registry{
		fields: cfg.Incident,
		values: make(map[string]map[string]struct{}, len(cfg.Incident)),
	}
	for field, choices := range cfg.Incident {
		set := make(map[string]struct{}, len(choices))
		for _, choice := range choices {
			if choice.Value == "" {
				return nil, fmt.Errorf("shared config %s: field %s has a choice without a value", path, field)
			}
			set[choice.Value] = struct{}{}
		}
		reg.values[field] = set
	}

	return reg, nil
}

// ChoicesFor returns the configured (value, label) pairs for a field.
func (r *Registry) ChoicesFor(field string) []Choice {
	return r.fields[field]
}

// ValuesFor returns just the values for a field, in config order.
func (r *Registry) ValuesFor(field string) []string {
	choices := r.fields[field]
	values := make([]string, 0, len(choices))
	for _, choice := range choices {
		values = append(values, choice.Value)
	}
	return values
}

// IsValid reports whether value belongs to the field's configured set.
func (r *Registry) IsValid(field, value string) bool {
	set, ok := r.values[field]
	if !ok {
		return false
	}
	_, ok = set[value]
	return ok
}

// Levels returns the configured severity level values.
func (r *Registry) Levels() []string { return r.ValuesFor(FieldLevels) }

// Scopes returns the configured scope values.
func (r *Registry) Scopes() []string { return r.ValuesFor(FieldScopes) }

// Statuses returns the configured status values.
func (r *Registry) Statuses() []string { return r.ValuesFor(FieldStatuses) }
