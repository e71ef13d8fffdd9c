package data

import (
	"strings"
	"testing"
)

const testArchetypes = `
archetypes:
  - name: ship
    health: 50
    grid: true
    gravity: 0
    ship: {avoidance_strength: 10, max_velocity: 100}
    spawner: {archetype: shot, rate: 1, loop: true, arc: {max_angle: 10, min_velocity: 5, max_velocity: 6}}
  - name: shot
    lifetime: 2
    ray_radius: 3
    projectile: {max_velocity: 200, damage: 7, explosion: boom}
  - name: boom
    explosion: {duration: 1, max_scale: 2}
`

func TestParseArchetypeTable(t *testing.T) {
	tab, err := ParseArchetypeTable([]byte(testArchetypes))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tab.Count() != 3 {
		t.Fatalf("Count = %d", tab.Count())
	}
	names := tab.Names()
	if strings.Join(names, ",") != "boom,ship,shot" {
		t.Fatalf("Names = %v", names)
	}
	ship := tab.Get("ship")
	if ship.Ship == nil || ship.Ship.MaxVelocity != 100 || ship.Health != 50 {
		t.Fatalf("ship = %+v", ship)
	}
	if ship.Gravity == nil || *ship.Gravity != 0 {
		t.Fatalf("explicit zero gravity lost")
	}
	if ship.Spawner == nil || ship.Spawner.Arc == nil || ship.Spawner.Arc.MaxAngle != 10 {
		t.Fatalf("spawner = %+v", ship.Spawner)
	}
	shot := tab.Get("shot")
	if shot.Gravity != nil || shot.RayRadius != 3 || shot.Projectile.Explosion != "boom" {
		t.Fatalf("shot = %+v", shot)
	}
	if tab.Get("nope") != nil {
		t.Fatalf("unknown archetype found")
	}
}

func TestParseArchetypeTable_Errors(t *testing.T) {
	cases := []struct {
		name, doc, want string
	}{
		{"no name", "archetypes:\n  - health: 1\n", "no name"},
		{"duplicate", "archetypes:\n  - name: a\n  - name: a\n", "duplicate"},
		{"bad spawn ref", "archetypes:\n  - name: a\n    spawner: {archetype: b}\n", "unknown archetype \"b\""},
		{"bad explosion ref", "archetypes:\n  - name: a\n    projectile: {explosion: c}\n", "unknown archetype \"c\""},
		{"yaml", "archetypes: [", "parse archetypes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseArchetypeTable([]byte(tc.doc))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestParseScenario(t *testing.T) {
	tab, err := ParseArchetypeTable([]byte(testArchetypes))
	if err != nil {
		t.Fatal(err)
	}
	s, err := ParseScenario([]byte(`
name: duel
bounds: 1000
fleets:
  - {faction: red, archetype: ship, count: 3, center: [-100, 0, 0], spread: 10, target: [100, 0, 0]}
  - {faction: blue, archetype: ship, count: 2, center: [100, 0, 0]}
`), tab)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Population() != 5 || s.Fleets[0].Center != (Vec3{-100, 0, 0}) {
		t.Fatalf("scenario = %+v", s)
	}

	if _, err := ParseScenario([]byte("name: x\nbounds: 0\n"), tab); err == nil {
		t.Fatalf("zero bounds accepted")
	}
	if _, err := ParseScenario([]byte("name: x\nbounds: 5\nfleets:\n  - {archetype: ghost, count: 1}\n"), tab); err == nil {
		t.Fatalf("unknown archetype accepted")
	}
}

func TestLoadShippedTables(t *testing.T) {
	tab, err := LoadArchetypeTable("../../data/yaml/archetypes.yaml")
	if err != nil {
		t.Fatalf("archetypes: %v", err)
	}
	s, err := LoadScenario("../../data/yaml/scenario.yaml", tab)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	if s.Population() == 0 {
		t.Fatalf("empty scenario")
	}
}
