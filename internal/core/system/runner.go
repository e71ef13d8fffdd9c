package system

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/sched"
)

// TickStats summarizes one tick.
type TickStats struct {
	Tick uint64
	sched.RunStats
	Entities int
}

// Runner drives one world: every tick it rebuilds the task graph from the
// registered systems and executes it.
type Runner struct {
	world      *ecs.World
	sched      *sched.Scheduler
	systems    []System
	concurrent bool
	log        *zap.Logger
	tick       uint64
}

func NewRunner(w *ecs.World, s *sched.Scheduler, concurrent bool, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		world:      w,
		sched:      s,
		systems:    make([]System, 0, 16),
		concurrent: concurrent,
		log:        log,
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
}

func (r *Runner) Systems() []System { return r.systems }

func (r *Runner) World() *ecs.World { return r.world }

// Tick schedules every system and runs the resulting graph. Structural world
// changes made by tasks are deferred to barriers or to the end of the tick.
func (r *Runner) Tick(dt time.Duration) (TickStats, error) {
	r.tick++
	r.sched.Reset()
	for _, s := range r.systems {
		s.Schedule(r.sched, dt)
	}

	r.world.BeginDeferred()
	err := r.sched.Run(r.concurrent, r.world)
	r.world.EndDeferred()

	st := TickStats{
		Tick:     r.tick,
		RunStats: r.sched.Stats(),
		Entities: r.world.Len(),
	}
	if err != nil {
		return st, fmt.Errorf("tick %d: %w", r.tick, err)
	}
	return st, nil
}
