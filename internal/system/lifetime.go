package system

import (
	"time"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
)

// LifetimeSystem counts down Lifetime components and destroys entities whose
// time ran out.
type LifetimeSystem struct {
	expired []ecs.EntityID
}

func NewLifetimeSystem() *LifetimeSystem { return &LifetimeSystem{} }

func (s *LifetimeSystem) Name() string { return "Lifetime" }

func (s *LifetimeSystem) Schedule(sc *sched.Scheduler, dt time.Duration) {
	secs := dt.Seconds()
	sc.AddChain(sc.NewChain(s.Name(), coresys.OrderLifetime, 0).
		AddWorkerTask(sched.Deps(sched.Write[component.Lifetime]()), func(w *ecs.World) {
			ecs.StoreOf[component.Lifetime](w).Each(func(_ ecs.EntityID, l *component.Lifetime) {
				l.LifeLeft -= secs
			})
		}).
		AddBarrierTask(func(w *ecs.World) {
			s.expired = s.expired[:0]
			ecs.StoreOf[component.Lifetime](w).Each(func(id ecs.EntityID, l *component.Lifetime) {
				if l.LifeLeft < 0 {
					s.expired = append(s.expired, id)
				}
			})
			for _, id := range s.expired {
				w.Destroy(id)
			}
			w.Sync()
		}).
		Finish())
}
