package system

import (
	"time"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
)

// gravity is the acceleration applied per unit of GravityStrength, in
// units/s² along -Z.
const gravity = 980.0

// MovementSystem integrates velocity into position. Raycasting entities keep
// their previous position so the sweep can cover the whole step.
type MovementSystem struct{}

func NewMovementSystem() *MovementSystem { return &MovementSystem{} }

func (s *MovementSystem) Name() string { return "Movement" }

func (s *MovementSystem) Schedule(sc *sched.Scheduler, dt time.Duration) {
	secs := dt.Seconds()
	sc.AddChain(sc.NewChain(s.Name(), coresys.OrderMovement, 0).
		AddWorkerTask(sched.Deps(
			sched.Write[component.Position](),
			sched.Write[component.Velocity](),
			sched.Write[component.LastPosition](),
			sched.Read[component.Movement](),
			sched.Read[component.MovementRaycast](),
		), func(w *ecs.World) { integrate(w, secs) }).
		Finish())
}

func integrate(w *ecs.World, dt float64) {
	ecs.Each2(w, func(_ ecs.EntityID, last *component.LastPosition, p *component.Position) {
		last.Pos = p.Pos
	})
	ecs.Each2(w, func(_ ecs.EntityID, m *component.Movement, v *component.Velocity) {
		v.Vel[2] -= gravity * m.GravityStrength * dt
	})
	ecs.Each2(w, func(_ ecs.EntityID, v *component.Velocity, p *component.Position) {
		p.Pos = p.Pos.Add(v.Vel.Mul(dt))
	})
}
