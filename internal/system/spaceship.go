package system

import (
	"time"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
)

// SpaceshipSystem turns every ship to face its heading. It depends on the
// boid chain so it sees this tick's steering.
type SpaceshipSystem struct{}

func NewSpaceshipSystem() *SpaceshipSystem { return &SpaceshipSystem{} }

func (s *SpaceshipSystem) Name() string { return "Spaceship" }

func (s *SpaceshipSystem) Schedule(sc *sched.Scheduler, _ time.Duration) {
	sc.AddChain(sc.NewChain(s.Name(), coresys.OrderSpaceship, 0).
		AddDependency(boidsChainName).
		AddWorkerTask(sched.Deps(
			sched.Write[component.Rotation](),
			sched.Read[component.Spaceship](),
			sched.Read[component.Velocity](),
		), func(w *ecs.World) {
			ecs.Each3(w, func(_ ecs.EntityID, _ *component.Spaceship, v *component.Velocity, r *component.Rotation) {
				if v.Vel.LenSqr() > epsilon {
					r.Rot = facing(v.Vel)
				}
			})
		}).
		Finish())
}
