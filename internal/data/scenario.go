package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fleet is a group of identical entities placed around Center at start.
type Fleet struct {
	Faction   string  `yaml:"faction"`
	Archetype string  `yaml:"archetype"`
	Count     int     `yaml:"count"`
	Center    Vec3    `yaml:"center"`
	Spread    float64 `yaml:"spread"`
	Target    Vec3    `yaml:"target"`
}

// Scenario is the initial battle layout.
type Scenario struct {
	Name   string  `yaml:"name"`
	Bounds float64 `yaml:"bounds"` // half extent of the battle cube
	Fleets []Fleet `yaml:"fleets"`
}

// LoadScenario loads scenario.yaml and checks every fleet against the
// archetype table.
func LoadScenario(path string, archetypes *ArchetypeTable) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(raw, archetypes)
}

func ParseScenario(raw []byte, archetypes *ArchetypeTable) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Bounds <= 0 {
		return nil, fmt.Errorf("scenario %q: bounds must be positive", s.Name)
	}
	for i, f := range s.Fleets {
		if archetypes.Get(f.Archetype) == nil {
			return nil, fmt.Errorf("scenario %q fleet #%d: unknown archetype %q", s.Name, i, f.Archetype)
		}
		if f.Count < 0 {
			return nil, fmt.Errorf("scenario %q fleet #%d: negative count", s.Name, i)
		}
	}
	return &s, nil
}

// Population returns the number of entities the scenario places at start.
func (s *Scenario) Population() int {
	n := 0
	for _, f := range s.Fleets {
		n += f.Count
	}
	return n
}
