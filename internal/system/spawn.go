package system

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/data"
)

// Placement is where and how an archetype instance enters the world.
type Placement struct {
	Pos     mgl64.Vec3
	Vel     mgl64.Vec3
	Facing  mgl64.Vec3 // zero = face along Vel
	Faction component.FactionID
	Target  mgl64.Vec3 // ships only
}

// Instantiate creates an entity from a. Components go through ecs.Add, so
// inside a tick they are applied at the next Sync.
func Instantiate(w *ecs.World, a *data.Archetype, p Placement) ecs.EntityID {
	e := w.CreateEntity()
	dir := p.Facing
	if dir == (mgl64.Vec3{}) {
		dir = p.Vel
	}
	ecs.Add(w, e, component.Position{Pos: p.Pos})
	ecs.Add(w, e, component.Velocity{Vel: p.Vel})
	ecs.Add(w, e, component.Rotation{Rot: facing(dir)})
	ecs.Add(w, e, component.Scale{Scale: mgl64.Vec3{a.Scale, a.Scale, a.Scale}})
	ecs.Add(w, e, component.Faction{Side: p.Faction})

	if a.Gravity != nil {
		ecs.Add(w, e, component.Movement{GravityStrength: *a.Gravity})
	}
	if a.Grid {
		ecs.Add(w, e, component.GridMember{})
	}
	if a.Health > 0 {
		ecs.Add(w, e, component.Health{HP: a.Health, MaxHP: a.Health})
	}
	if a.Lifetime > 0 {
		ecs.Add(w, e, component.Lifetime{LifeLeft: a.Lifetime})
	}
	if a.RayRadius > 0 {
		ecs.Add(w, e, component.MovementRaycast{Radius: a.RayRadius})
		ecs.Add(w, e, component.LastPosition{Pos: p.Pos})
		ecs.Add(w, e, component.RaycastResult{})
	}
	if a.Ship != nil {
		ecs.Add(w, e, component.Spaceship{
			AvoidanceStrength: a.Ship.AvoidanceStrength,
			MaxVelocity:       a.Ship.MaxVelocity,
			Target:            p.Target,
		})
	}
	if a.Projectile != nil {
		ecs.Add(w, e, component.Projectile{
			HeatSeekStrength: a.Projectile.HeatSeekStrength,
			MaxVelocity:      a.Projectile.MaxVelocity,
			Damage:           a.Projectile.Damage,
			Explosion:        a.Projectile.Explosion,
		})
	}
	if a.Explosion != nil {
		ecs.Add(w, e, component.Explosion{Duration: a.Explosion.Duration, MaxScale: a.Explosion.MaxScale})
	}
	if a.Spawner != nil {
		ecs.Add(w, e, component.ArchetypeSpawner{
			Archetype:      a.Spawner.Archetype,
			SpawnRate:      a.Spawner.Rate,
			TimeUntilSpawn: a.Spawner.Delay,
			Loop:           a.Spawner.Loop,
		})
		if arc := a.Spawner.Arc; arc != nil {
			ecs.Add(w, e, component.RandomArcSpawn{
				MinAngle:    arc.MinAngle,
				MaxAngle:    arc.MaxAngle,
				MinVelocity: arc.MinVelocity,
				MaxVelocity: arc.MaxVelocity,
			})
		}
	}
	return e
}

// SpawnScenario places every fleet of sc, scattered uniformly inside a cube
// of half extent Spread around the fleet centre. Returns the number of
// entities created.
func SpawnScenario(w *ecs.World, sc *data.Scenario, archetypes *data.ArchetypeTable, rng *rand.Rand) int {
	n := 0
	for _, f := range sc.Fleets {
		a := archetypes.Get(f.Archetype)
		center := mgl64.Vec3(f.Center)
		target := mgl64.Vec3(f.Target)
		for i := 0; i < f.Count; i++ {
			offset := mgl64.Vec3{
				(rng.Float64()*2 - 1) * f.Spread,
				(rng.Float64()*2 - 1) * f.Spread,
				(rng.Float64()*2 - 1) * f.Spread,
			}
			pos := center.Add(offset)
			Instantiate(w, a, Placement{
				Pos:     pos,
				Facing:  target.Sub(pos),
				Faction: component.ParseFaction(f.Faction),
				Target:  target,
			})
			n++
		}
	}
	return n
}

// randomCone returns a unit vector within angle degrees of +X.
func randomCone(rng *rand.Rand, minDeg, maxDeg float64) mgl64.Vec3 {
	theta := mgl64.DegToRad(minDeg + rng.Float64()*(maxDeg-minDeg))
	phi := rng.Float64() * 2 * math.Pi
	s := math.Sin(theta)
	return mgl64.Vec3{math.Cos(theta), s * math.Cos(phi), s * math.Sin(phi)}
}
