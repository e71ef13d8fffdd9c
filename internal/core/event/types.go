package event

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/starfall/battlesim/internal/core/ecs"
)

// Battle event types.

type ProjectileHit struct {
	Projectile ecs.EntityID
	Target     ecs.EntityID
	Damage     float64
	Critical   bool
	Point      mgl64.Vec3
}

type ShipDestroyed struct {
	Ship    ecs.EntityID
	Faction uint8
	Point   mgl64.Vec3
}

type EntitySpawned struct {
	Entity    ecs.EntityID
	Archetype string
}
