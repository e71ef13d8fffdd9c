package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Vec3 is a YAML-friendly [x, y, z] triple.
type Vec3 [3]float64

type ShipSpec struct {
	AvoidanceStrength float64 `yaml:"avoidance_strength"`
	MaxVelocity       float64 `yaml:"max_velocity"`
}

type ProjectileSpec struct {
	HeatSeekStrength float64 `yaml:"heat_seek_strength"`
	MaxVelocity      float64 `yaml:"max_velocity"`
	Damage           float64 `yaml:"damage"`
	Explosion        string  `yaml:"explosion"`
}

type ExplosionSpec struct {
	Duration float64 `yaml:"duration"`
	MaxScale float64 `yaml:"max_scale"`
}

type ArcSpec struct {
	MinAngle    float64 `yaml:"min_angle"`
	MaxAngle    float64 `yaml:"max_angle"`
	MinVelocity float64 `yaml:"min_velocity"`
	MaxVelocity float64 `yaml:"max_velocity"`
}

type SpawnerSpec struct {
	Archetype string   `yaml:"archetype"`
	Rate      float64  `yaml:"rate"`
	Delay     float64  `yaml:"delay"`
	Loop      bool     `yaml:"loop"`
	Arc       *ArcSpec `yaml:"arc"`
}

// Archetype is an entity template. Absent sections mean the component is
// not attached.
type Archetype struct {
	Name       string          `yaml:"name"`
	Health     float64         `yaml:"health"`
	Scale      float64         `yaml:"scale"`
	Lifetime   float64         `yaml:"lifetime"`
	Gravity    *float64        `yaml:"gravity"` // present = Movement attached
	Grid       bool            `yaml:"grid"`
	RayRadius  float64         `yaml:"ray_radius"` // > 0 = MovementRaycast attached
	Ship       *ShipSpec       `yaml:"ship"`
	Projectile *ProjectileSpec `yaml:"projectile"`
	Explosion  *ExplosionSpec  `yaml:"explosion"`
	Spawner    *SpawnerSpec    `yaml:"spawner"`
}

type archetypeFile struct {
	Archetypes []Archetype `yaml:"archetypes"`
}

// ArchetypeTable provides lookup of entity templates by name.
type ArchetypeTable struct {
	byName map[string]*Archetype
}

// LoadArchetypeTable loads archetypes.yaml.
func LoadArchetypeTable(path string) (*ArchetypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetypes: %w", err)
	}
	return ParseArchetypeTable(raw)
}

// ParseArchetypeTable decodes and validates an archetype document.
func ParseArchetypeTable(raw []byte) (*ArchetypeTable, error) {
	var f archetypeFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse archetypes: %w", err)
	}
	t := &ArchetypeTable{byName: make(map[string]*Archetype, len(f.Archetypes))}
	for i := range f.Archetypes {
		a := &f.Archetypes[i]
		if a.Name == "" {
			return nil, fmt.Errorf("archetype #%d has no name", i)
		}
		if _, dup := t.byName[a.Name]; dup {
			return nil, fmt.Errorf("duplicate archetype %q", a.Name)
		}
		t.byName[a.Name] = a
	}
	// references are checked once everything is indexed
	for _, a := range t.byName {
		if a.Spawner != nil && t.byName[a.Spawner.Archetype] == nil {
			return nil, fmt.Errorf("archetype %q spawns unknown archetype %q", a.Name, a.Spawner.Archetype)
		}
		if a.Projectile != nil && a.Projectile.Explosion != "" && t.byName[a.Projectile.Explosion] == nil {
			return nil, fmt.Errorf("archetype %q explodes into unknown archetype %q", a.Name, a.Projectile.Explosion)
		}
	}
	return t, nil
}

// Get returns the named archetype, or nil.
func (t *ArchetypeTable) Get(name string) *Archetype {
	return t.byName[name]
}

// Count returns the total number of archetypes loaded.
func (t *ArchetypeTable) Count() int {
	return len(t.byName)
}

// Names returns every archetype name, sorted.
func (t *ArchetypeTable) Names() []string {
	out := make([]string, 0, len(t.byName))
	for n := range t.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
