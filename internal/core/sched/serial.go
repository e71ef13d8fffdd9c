package sched

import (
	"github.com/starfall/battlesim/internal/core/ecs"
)

// runSerial walks the graph in waves of zero-indegree nodes on the calling
// goroutine. Within a wave nodes run in creation order. This is the
// reference semantics every concurrent schedule must be equivalent to.
func (s *Scheduler) runSerial(g *Graph, w *ecs.World) error {
	for _, n := range g.nodes {
		n.remaining = n.preds
		n.done = false
	}

	wave := []*GraphTask{g.root}
	visited := 0
	for len(wave) > 0 {
		var next []*GraphTask
		for _, n := range wave {
			if n.task != nil {
				s.execute(n, w)
			}
			n.done = true
			visited++
			for _, succ := range n.succ {
				succ.remaining--
				if succ.remaining == 0 {
					next = append(next, succ)
				}
			}
		}
		wave = next
	}

	s.mu.Lock()
	s.stats.Iterations = visited
	s.stats.MaxParallel = 1
	s.mu.Unlock()

	if err := s.failure(); err != nil {
		return err
	}
	if visited != len(g.nodes) {
		return graphErrorf(ErrGraphCycle, "serial walk visited %d of %d nodes", visited, len(g.nodes))
	}
	return nil
}
