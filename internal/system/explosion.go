package system

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
)

// ExplosionSystem ages explosions, removes finished ones and grows the rest
// towards their maximum scale.
type ExplosionSystem struct {
	done []ecs.EntityID
}

func NewExplosionSystem() *ExplosionSystem { return &ExplosionSystem{} }

func (s *ExplosionSystem) Name() string { return "Explosion" }

func (s *ExplosionSystem) Schedule(sc *sched.Scheduler, dt time.Duration) {
	secs := dt.Seconds()
	sc.AddChain(sc.NewChain(s.Name(), coresys.OrderExplosion, 0).
		AddDependency("Movement").
		AddBarrierTask(func(w *ecs.World) {
			s.done = s.done[:0]
			ecs.StoreOf[component.Explosion](w).Each(func(id ecs.EntityID, e *component.Explosion) {
				e.LiveTime += secs
				if e.LiveTime > e.Duration {
					s.done = append(s.done, id)
				}
			})
			for _, id := range s.done {
				w.Destroy(id)
			}
			w.Sync()
		}).
		AddWorkerTask(sched.Deps(
			sched.Write[component.Scale](),
			sched.Read[component.Explosion](),
		), func(w *ecs.World) {
			ecs.Each2(w, func(_ ecs.EntityID, e *component.Explosion, scale *component.Scale) {
				f := 1.0
				if e.Duration > 0 {
					f = clamp(e.LiveTime/e.Duration, 0, 1)
				}
				v := e.MaxScale * f
				scale.Scale = mgl64.Vec3{v, v, v}
			})
		}).
		Finish())
}
