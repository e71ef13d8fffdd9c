package component

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/starfall/battlesim/internal/core/ecs"
)

// FactionID identifies a side in the battle.
type FactionID uint8

const (
	FactionRed FactionID = iota
	FactionBlue
	FactionNeutral
)

func (f FactionID) String() string {
	switch f {
	case FactionRed:
		return "red"
	case FactionBlue:
		return "blue"
	default:
		return "neutral"
	}
}

// ParseFaction maps a table name to a FactionID. Unknown names are neutral.
func ParseFaction(s string) FactionID {
	switch s {
	case "red":
		return FactionRed
	case "blue":
		return FactionBlue
	default:
		return FactionNeutral
	}
}

type Faction struct {
	Side FactionID
}

type Spaceship struct {
	AvoidanceStrength float64
	MaxVelocity       float64
	Target            mgl64.Vec3
}

type Projectile struct {
	HeatSeekStrength float64
	MaxVelocity      float64
	Damage           float64
	Explosion        string // archetype spawned on impact
}

type Explosion struct {
	LiveTime float64
	Duration float64
	MaxScale float64
}

type Health struct {
	HP    float64
	MaxHP float64
}

// Lifetime destroys the entity once LifeLeft drops below zero.
type Lifetime struct {
	LifeLeft float64
}

// ArchetypeSpawner spawns Archetype every SpawnRate seconds, or once when
// Loop is false.
type ArchetypeSpawner struct {
	Archetype      string
	SpawnRate      float64
	TimeUntilSpawn float64
	Loop           bool
}

// RandomArcSpawn gives spawned entities a random velocity inside a cone
// around the spawner's forward axis.
type RandomArcSpawn struct {
	MinAngle    float64 // degrees
	MaxAngle    float64
	MinVelocity float64
	MaxVelocity float64
}

// MovementRaycast sweeps a sphere of Radius from LastPosition to Position
// each tick.
type MovementRaycast struct {
	Radius float64
}

// RaycastResult holds the first hit of the last sweep.
type RaycastResult struct {
	Hit    bool
	Target ecs.EntityID
	Point  mgl64.Vec3
	Speed  float64
}
