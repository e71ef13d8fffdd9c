package system

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/starfall/battlesim/internal/component"
	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/sched"
	coresys "github.com/starfall/battlesim/internal/core/system"
)

func newBattleWorld() *ecs.World {
	w := ecs.NewWorld()
	component.RegisterAll(w)
	return w
}

func newTestRunner(t *testing.T, w *ecs.World, concurrent bool, systems ...coresys.System) *coresys.Runner {
	t.Helper()
	p := sched.NewPool(4, 64)
	t.Cleanup(p.Close)
	r := coresys.NewRunner(w, sched.New(sched.WithPool(p)), concurrent, nil)
	for _, s := range systems {
		r.Register(s)
	}
	return r
}

func tick(t *testing.T, r *coresys.Runner, dt time.Duration, n int) coresys.TickStats {
	t.Helper()
	var st coresys.TickStats
	for i := 0; i < n; i++ {
		var err error
		st, err = r.Tick(dt)
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	return st
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func nearVec(a, b mgl64.Vec3) bool { return a.ApproxEqualThreshold(b, 1e-6) }

func coresysStats(tick uint64) coresys.TickStats {
	return coresys.TickStats{Tick: tick, RunStats: sched.RunStats{Duration: time.Millisecond}}
}
