package system

import (
	"time"

	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/event"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
)

// EventsSystem delivers last tick's events. It is a single barrier at the
// very start of the tick, so handlers see a quiescent world.
type EventsSystem struct {
	bus       *event.Bus
	delivered int
}

func NewEventsSystem(bus *event.Bus) *EventsSystem {
	return &EventsSystem{bus: bus}
}

func (s *EventsSystem) Name() string { return "Events" }

func (s *EventsSystem) Schedule(sc *sched.Scheduler, _ time.Duration) {
	sc.AddChain(sc.NewChain(s.Name(), coresys.OrderEvents, 0).
		AddBarrierTask(func(*ecs.World) {
			s.bus.SwapBuffers()
			s.delivered += s.bus.DispatchAll()
		}).
		Finish())
}

// Delivered returns the number of events dispatched so far.
func (s *EventsSystem) Delivered() int { return s.delivered }
