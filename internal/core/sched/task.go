package sched

import (
	"github.com/starfall/battlesim/internal/core/ecs"
)

// TaskKind selects where and how a task runs.
type TaskKind uint8

const (
	// Worker tasks run on any pool worker, gated by descriptor conflicts.
	Worker TaskKind = iota
	// Dedicated tasks run only on the goroutine that calls Run. Use them for
	// state that must stay on one goroutine (the Lua VM, the terminal screen).
	Dedicated
	// Barrier tasks run alone: everything registered before them finishes
	// first and nothing after them starts until they return.
	Barrier
)

func (k TaskKind) String() string {
	switch k {
	case Worker:
		return "worker"
	case Dedicated:
		return "dedicated"
	case Barrier:
		return "barrier"
	default:
		return "unknown"
	}
}

// TaskFunc is a task body. Bodies must not keep references to the world past
// their return and must capture gameplay state by value or through handles
// that are safe to share between goroutines.
type TaskFunc func(w *ecs.World)

// Task is one schedulable unit of work.
type Task struct {
	kind  TaskKind
	deps  Dependencies
	fn    TaskFunc
	next  *Task
	chain *Chain
	index int // position inside the owning chain
}

func (t *Task) Kind() TaskKind     { return t.kind }
func (t *Task) Deps() Dependencies { return t.deps }
func (t *Task) Next() *Task        { return t.next }
func (t *Task) Chain() *Chain      { return t.chain }

// Chain is the ordered task list of one logical system for one tick.
type Chain struct {
	name      string
	sortKey   int
	priority  float64
	dependsOn []string
	first     *Task
	last      *Task
	length    int
	order     int // registration order, tie-break for equal sort keys
}

func (c *Chain) Name() string        { return c.name }
func (c *Chain) SortKey() int        { return c.sortKey }
func (c *Chain) Priority() float64   { return c.priority }
func (c *Chain) DependsOn() []string { return c.dependsOn }
func (c *Chain) First() *Task        { return c.first }
func (c *Chain) Last() *Task         { return c.last }
func (c *Chain) Len() int            { return c.length }

// HasBarrier reports whether any task of the chain is a barrier.
func (c *Chain) HasBarrier() bool {
	for t := c.first; t != nil; t = t.next {
		if t.kind == Barrier {
			return true
		}
	}
	return false
}

// ExecuteInline runs every task of the chain in order on the calling
// goroutine, ignoring kinds and descriptors.
func (c *Chain) ExecuteInline(w *ecs.World) {
	for t := c.first; t != nil; t = t.next {
		t.fn(w)
	}
}

func (c *Chain) append(t *Task) {
	t.chain = c
	t.index = c.length
	c.length++
	if c.first == nil {
		c.first = t
		c.last = t
		return
	}
	c.last.next = t
	c.last = t
}

// ChainBuilder assembles one Chain. Obtain it from Scheduler.NewChain.
type ChainBuilder struct {
	s     *Scheduler
	chain *Chain
}

// AddWorkerTask appends a task that may run on any worker.
func (b *ChainBuilder) AddWorkerTask(deps Dependencies, fn TaskFunc) *ChainBuilder {
	return b.add(Worker, deps, fn)
}

// AddDedicatedTask appends a task that only runs on the goroutine calling
// Run. It is conflict-gated exactly like a worker task.
func (b *ChainBuilder) AddDedicatedTask(deps Dependencies, fn TaskFunc) *ChainBuilder {
	return b.add(Dedicated, deps, fn)
}

// AddBarrierTask appends a synchronization point. Barriers are exclusive
// with everything, so they carry no descriptor.
func (b *ChainBuilder) AddBarrierTask(fn TaskFunc) *ChainBuilder {
	return b.add(Barrier, Dependencies{}, fn)
}

// AddDependency declares that this chain starts only after the last task of
// the named chain completes.
func (b *ChainBuilder) AddDependency(chain string) *ChainBuilder {
	b.chain.dependsOn = append(b.chain.dependsOn, chain)
	return b
}

// Finish returns the built chain. It still has to be passed to AddChain.
func (b *ChainBuilder) Finish() *Chain { return b.chain }

func (b *ChainBuilder) add(kind TaskKind, deps Dependencies, fn TaskFunc) *ChainBuilder {
	if fn == nil {
		panic("sched: nil task body in chain " + b.chain.name)
	}
	t := b.s.tasks.alloc()
	t.kind = kind
	t.deps = deps.clone()
	t.fn = fn
	b.chain.append(t)
	return b
}
