// Package achievement evaluates unlock conditions against a statistics
// snapshot. Unlocks are monotonic: once an id is in the unlocked set it stays
// unlocked no matter what the metrics do afterwards.
package achievement

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed achievements.yaml
var defaultDocument []byte

// ErrInvalidRegistry is returned when a registry document fails validation.
var ErrInvalidRegistry = errors.New("invalid achievement registry")

// Condition is a parsed unlock rule: metric op target.
type Condition struct {
	Metric Metric `yaml:"metric" json:"metric"`
	Op     Op     `yaml:"op" json:"op"`
	Target int    `yaml:"target" json:"target"`
}

// Definition is one entry of the registry.
type Definition struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Emoji       string    `yaml:"emoji" json:"emoji"`
	Category    string    `yaml:"category" json:"category"`
	Rarity      Rarity    `yaml:"rarity" json:"rarity"`
	XPReward    int       `yaml:"xp_reward" json:"xp_reward"`
	Condition   Condition `yaml:"condition" json:"condition"`
}

// Registry is an immutable, ordered set of definitions.
type Registry struct {
	defs []Definition
	byID map[string]int
}

// NewRegistry validates defs and builds a registry that keeps their order.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		defs: make([]Definition, 0, len(defs)),
		byID: make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidRegistry, i)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidRegistry, d.ID)
		}
		if !d.Rarity.IsValid() {
			return nil, fmt.Errorf("%w: %s: unknown rarity %q", ErrInvalidRegistry, d.ID, d.Rarity)
		}
		if d.Condition.Op == "" {
			d.Condition.Op = OpGTE
		}
		if d.Condition.Op != OpGTE {
			return nil, fmt.Errorf("%w: %s: unknown operator %q", ErrInvalidRegistry, d.ID, d.Condition.Op)
		}
		if d.Condition.Metric < 0 || d.Condition.Metric >= metricCount {
			return nil, fmt.Errorf("%w: %s: unknown metric %d", ErrInvalidRegistry, d.ID, int(d.Condition.Metric))
		}
		if d.Condition.Target <= 0 {
			return nil, fmt.Errorf("%w: %s: missing condition or non-positive target", ErrInvalidRegistry, d.ID)
		}
		if d.XPReward < 0 {
			return nil, fmt.Errorf("%w: %s: negative xp reward", ErrInvalidRegistry, d.ID)
		}
		r.byID[d.ID] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r, nil
}

// ParseRegistry decodes a YAML registry document. Unknown keys are errors.
func ParseRegistry(data []byte) (*Registry, error) {
	var doc struct {
		Achievements []Definition `yaml:"achievements"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}
	return NewRegistry(doc.Achievements)
}

var loadDefault = sync.OnceValues(func() (*Registry, error) {
	return ParseRegistry(defaultDocument)
})

// Default returns the built-in registry.
func Default() (*Registry, error) {
	return loadDefault()
}

// All returns the definitions in registry order. The slice is a copy.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Get looks up a definition by id.
func (r *Registry) Get(id string) (Definition, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

func (r *Registry) Len() int { return len(r.defs) }
