package system

import (
	"errors"
	"testing"
	"time"

	"github.com/starfall/battlesim/internal/core/ecs"
	"github.com/starfall/battlesim/internal/core/sched"
)

type marker struct{ N int }

// spawnSystem creates one entity per tick from a worker task and counts, from
// a later barrier, how many markers it can see.
type spawnSystem struct {
	seenInTask    int
	seenInBarrier int
	panicOn       uint64
	ticks         uint64
}

func (s *spawnSystem) Name() string { return "spawn" }

func (s *spawnSystem) Schedule(sc *sched.Scheduler, _ time.Duration) {
	s.ticks++
	tick := s.ticks
	sc.AddChain(sc.NewChain(s.Name(), 0, 0).
		AddWorkerTask(sched.Deps(sched.Write[marker]()), func(w *ecs.World) {
			if tick == s.panicOn {
				panic("spawn failed")
			}
			e := w.CreateEntity()
			ecs.Add(w, e, marker{N: int(tick)})
			s.seenInTask = ecs.StoreOf[marker](w).Len()
		}).
		Finish())
}

type countSystem struct{ s *spawnSystem }

func (c countSystem) Name() string { return "count" }

func (c countSystem) Schedule(sc *sched.Scheduler, _ time.Duration) {
	sc.AddChain(sc.NewChain(c.Name(), 10, 0).
		AddBarrierTask(func(w *ecs.World) {
			c.s.seenInBarrier = ecs.StoreOf[marker](w).Len()
		}).
		Finish())
}

func newRunnerWorld() *ecs.World {
	w := ecs.NewWorld()
	ecs.Register[marker](w)
	return w
}

func TestRunner_DefersStructuralChanges(t *testing.T) {
	w := newRunnerWorld()
	spawn := &spawnSystem{}
	r := NewRunner(w, sched.New(), true, nil)
	r.Register(spawn)
	r.Register(countSystem{spawn})

	for want := 1; want <= 3; want++ {
		st, err := r.Tick(16 * time.Millisecond)
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		if st.Tick != uint64(want) || st.Entities != want {
			t.Fatalf("stats = %+v", st)
		}
		// the add is only applied once the tick's bracket closes
		if spawn.seenInTask != want-1 || spawn.seenInBarrier != want-1 {
			t.Fatalf("tick %d: task saw %d, barrier saw %d", want, spawn.seenInTask, spawn.seenInBarrier)
		}
		if n := ecs.StoreOf[marker](w).Len(); n != want {
			t.Fatalf("markers after tick = %d", n)
		}
	}
	if len(r.Systems()) != 2 || r.World() != w {
		t.Fatalf("runner accessors")
	}
}

func TestRunner_WrapsTaskFailure(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		w := newRunnerWorld()
		spawn := &spawnSystem{panicOn: 2}
		r := NewRunner(w, sched.New(), concurrent, nil)
		r.Register(spawn)

		if _, err := r.Tick(time.Millisecond); err != nil {
			t.Fatalf("tick 1: %v", err)
		}
		_, err := r.Tick(time.Millisecond)
		if !errors.Is(err, sched.ErrTaskPanic) {
			t.Fatalf("concurrent=%v: err = %v", concurrent, err)
		}
		if err.Error()[:7] != "tick 2:" {
			t.Fatalf("error not tagged with the tick: %q", err)
		}
		if w.Deferred() {
			t.Fatalf("world left in deferred mode")
		}
		if _, err := r.Tick(time.Millisecond); err != nil {
			t.Fatalf("runner unusable after a failed tick: %v", err)
		}
	}
}
