package component

import "github.com/starfall/battlesim/internal/core/ecs"

// RegisterAll creates a store for every battle component.
func RegisterAll(w *ecs.World) {
	ecs.Register[Position](w)
	ecs.Register[Velocity](w)
	ecs.Register[LastPosition](w)
	ecs.Register[Rotation](w)
	ecs.Register[Scale](w)
	ecs.Register[Movement](w)
	ecs.Register[GridMember](w)
	ecs.Register[Faction](w)
	ecs.Register[Spaceship](w)
	ecs.Register[Projectile](w)
	ecs.Register[Explosion](w)
	ecs.Register[Health](w)
	ecs.Register[Lifetime](w)
	ecs.Register[ArchetypeSpawner](w)
	ecs.Register[RandomArcSpawn](w)
	ecs.Register[MovementRaycast](w)
	ecs.Register[RaycastResult](w)
}
