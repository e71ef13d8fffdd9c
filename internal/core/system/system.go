package system

import (
	"time"

	"github.com/starfall/battlesim/internal/core/sched"
)

// Sort keys of the battle systems. Chains with lower keys are laid out first;
// explicit dependencies still win over keys.
const (
	OrderEvents    = 0
	OrderBoids     = 200
	OrderMovement  = 300
	OrderSpaceship = 400
	OrderRaycast   = 999
	OrderRadar     = 1500
	OrderLifetime  = 100000
	OrderExplosion = 200000
	OrderSpawner   = 1000000
	OrderTelemetry = 2000000
)

// System is the interface every ECS system implements. Schedule is called
// once per tick and registers the system's chains for that tick; it must not
// touch the world itself.
type System interface {
	Name() string
	Schedule(s *sched.Scheduler, dt time.Duration)
}
