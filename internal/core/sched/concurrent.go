package sched

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/starfall/battlesim/internal/core/ecs"
)

const maxStuckNames = 32

type pendingTask struct {
	node *GraphTask
	deps Dependencies
}

// runConcurrent executes g with worker tasks on the pool and dedicated tasks
// and barriers on the calling goroutine.
func (s *Scheduler) runConcurrent(g *Graph, w *ecs.World, pool *Pool) error {
	for _, n := range g.nodes {
		n.remaining = n.preds
		n.done = false
	}
	s.dispatched.Store(0)
	s.inlined.Store(0)
	select {
	case <-s.wake:
	default:
	}

	s.mu.Lock()
	s.clearRuntimeLocked()
	s.remaining = len(g.nodes)
	launch := s.completeLocked(g.root, nil)
	s.mu.Unlock()
	s.launch(launch, w, pool)

	timer := time.NewTimer(s.waitTimeout)
	defer timer.Stop()

	var waits, timeouts int
	iterations := 0
	for {
		s.mu.Lock()
		if s.remaining == 0 {
			s.stats.Iterations = iterations
			s.stats.Waits = waits
			s.stats.Timeouts = timeouts
			s.stats.Dispatched = int(s.dispatched.Load())
			s.stats.Inline = int(s.inlined.Load())
			s.mu.Unlock()
			return s.failure()
		}
		iterations++
		if iterations > s.maxIterations {
			err := s.deadlockLocked(g, iterations)
			s.halted = true
			s.mu.Unlock()
			s.quiesce(timer)
			return err
		}

		if len(s.dedicated) > 0 {
			s.drain = append(s.drain[:0], s.dedicated...)
			s.dedicated = s.dedicated[:0]
			s.mu.Unlock()
			for _, n := range s.drain {
				s.execute(n, w)
				s.mu.Lock()
				launch := s.completeLocked(n, nil)
				s.mu.Unlock()
				s.launch(launch, w, pool)
			}
			continue
		}

		if len(s.pending) == 0 {
			if len(s.barriers) == 0 {
				// Nothing running, nothing runnable, work left.
				err := s.deadlockLocked(g, iterations)
				s.mu.Unlock()
				return err
			}
			n := s.barriers[0]
			s.barriers = s.barriers[1:]
			s.inBarrier = true
			s.mu.Unlock()

			s.execute(n, w)

			s.mu.Lock()
			s.inBarrier = false
			launch := s.completeLocked(n, nil)
			s.mu.Unlock()
			s.launch(launch, w, pool)
			continue
		}
		s.mu.Unlock()

		waits++
		timer.Reset(s.waitTimeout)
		select {
		case <-s.wake:
		case <-timer.C:
			timeouts++
		}
		timer.Stop()
	}
}

// launch hands worker tasks to the pool. When the pool queue is full the task
// runs on the current goroutine instead.
func (s *Scheduler) launch(batch []*GraphTask, w *ecs.World, pool *Pool) {
	for _, n := range batch {
		n := n
		job := func() {
			s.execute(n, w)
			s.mu.Lock()
			launch := s.completeLocked(n, nil)
			s.mu.Unlock()
			s.launch(launch, w, pool)
		}
		if pool.Submit(job) {
			s.dispatched.Add(1)
			continue
		}
		s.inlined.Add(1)
		job()
	}
}

// completeLocked retires n, releases its successors and returns the worker
// tasks that became dispatchable. Barriers and dedicated tasks are queued for
// the dispatcher, which is always signalled.
func (s *Scheduler) completeLocked(n *GraphTask, launch []*GraphTask) []*GraphTask {
	for i := range s.pending {
		if s.pending[i].node == n {
			copy(s.pending[i:], s.pending[i+1:])
			s.pending[len(s.pending)-1] = pendingTask{}
			s.pending = s.pending[:len(s.pending)-1]
			break
		}
	}
	n.done = true
	s.remaining--
	for _, succ := range n.succ {
		succ.remaining--
		if succ.remaining == 0 {
			s.readyLocked(succ)
		}
	}
	launch = s.scanLocked(launch)
	s.signal()
	return launch
}

func (s *Scheduler) readyLocked(n *GraphTask) {
	if n.Kind() == Barrier {
		s.barriers = append(s.barriers, n)
		return
	}
	s.waiting = append(s.waiting, n)
}

// scanLocked moves every waiting task that conflicts with nothing pending into
// the pending set, highest priority first. Nothing is dispatched while a
// barrier runs or waits for the pending set to drain.
func (s *Scheduler) scanLocked(launch []*GraphTask) []*GraphTask {
	if s.inBarrier || s.halted || len(s.barriers) > 0 || len(s.waiting) == 0 {
		return launch
	}
	sort.SliceStable(s.waiting, func(i, j int) bool {
		if s.waiting[i].priority != s.waiting[j].priority {
			return s.waiting[i].priority > s.waiting[j].priority
		}
		return s.waiting[i].seq < s.waiting[j].seq
	})
	kept := s.waiting[:0]
	for _, n := range s.waiting {
		if s.conflictsLocked(n.task.deps) {
			kept = append(kept, n)
			continue
		}
		s.pending = append(s.pending, pendingTask{node: n, deps: n.task.deps})
		if len(s.pending) > s.stats.MaxParallel {
			s.stats.MaxParallel = len(s.pending)
		}
		if n.task.kind == Dedicated {
			s.dedicated = append(s.dedicated, n)
		} else {
			launch = append(launch, n)
		}
	}
	for i := len(kept); i < len(s.waiting); i++ {
		s.waiting[i] = nil
	}
	s.waiting = kept
	return launch
}

func (s *Scheduler) conflictsLocked(d Dependencies) bool {
	for i := range s.pending {
		if s.pending[i].deps.Conflicts(d) {
			return true
		}
	}
	return false
}

// signal wakes the dispatcher without blocking; one queued signal is enough.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) deadlockLocked(g *Graph, iterations int) error {
	err := &DeadlockError{Remaining: s.remaining, Iterations: iterations}
	for _, n := range g.nodes {
		if n.done {
			continue
		}
		if len(err.Stuck) == maxStuckNames {
			err.Stuck = append(err.Stuck, "...")
			break
		}
		err.Stuck = append(err.Stuck, n.name)
	}
	s.stats.Iterations = iterations
	s.log.Error("scheduler deadlock",
		zap.Int("remaining", s.remaining),
		zap.Int("iterations", iterations),
		zap.Int("pending", len(s.pending)),
		zap.Int("waiting", len(s.waiting)),
		zap.Strings("stuck", err.Stuck),
	)
	return err
}

// quiesce waits for worker tasks already in flight after a deadlock so none
// of them outlives Run. Queued dedicated tasks never started and are dropped.
func (s *Scheduler) quiesce(timer *time.Timer) {
	s.aborted.Store(true)
	for {
		s.mu.Lock()
		inFlight := len(s.pending) - len(s.dedicated)
		s.mu.Unlock()
		if inFlight <= 0 {
			return
		}
		timer.Reset(s.waitTimeout)
		select {
		case <-s.wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}
