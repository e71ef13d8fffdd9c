package sched

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/starfall/battlesim/internal/core/ecs"
)

const (
	defaultWaitTimeout   = 2 * time.Millisecond
	defaultMaxIterations = 1 << 22
)

// Observer receives a callback around every task body. Calls arrive from
// whichever goroutine ran the task. pending is the size of the pending set
// when the task started (it includes the task itself unless it is a barrier).
type Observer interface {
	TaskStarted(node string, kind TaskKind, pending int)
	TaskFinished(node string, kind TaskKind)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPool sets the worker pool used in concurrent mode. Without one, Run
// starts a temporary pool per call.
func WithPool(p *Pool) Option { return func(s *Scheduler) { s.pool = p } }

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option { return func(s *Scheduler) { s.log = l } }

// WithWaitTimeout bounds each dispatcher wait for a wake-up signal.
func WithWaitTimeout(d time.Duration) Option { return func(s *Scheduler) { s.waitTimeout = d } }

// WithMaxIterations sets the dispatch-loop ceiling after which a tick is
// declared deadlocked.
func WithMaxIterations(n int) Option { return func(s *Scheduler) { s.maxIterations = n } }

// WithObserver installs an instrumentation hook.
func WithObserver(o Observer) Option { return func(s *Scheduler) { s.observer = o } }

// RunStats describes the last Run.
type RunStats struct {
	Chains      int
	Tasks       int
	Edges       int
	Dangling    int
	Dispatched  int // tasks handed to the pool
	Inline      int // worker tasks run inline because the pool queue was full
	Waits       int // dispatcher waits
	Timeouts    int // waits that ended on the timeout instead of a signal
	Iterations  int
	MaxParallel int // high-water mark of the pending set
	Duration    time.Duration
}

// Scheduler owns the chains of one tick, builds their task graph and runs
// it. All tick-scoped objects come from arenas released by Reset, so one
// Scheduler can be reused tick after tick; Run must not be called
// concurrently.
type Scheduler struct {
	log           *zap.Logger
	pool          *Pool
	waitTimeout   time.Duration
	maxIterations int
	observer      Observer

	tasks      arena[Task]
	chains     arena[Chain]
	nodes      arena[GraphTask]
	registered []*Chain
	graph      *Graph

	// concurrent bookkeeping, guarded by mu; never held across a task body
	mu        sync.Mutex
	pending   []pendingTask
	waiting   []*GraphTask
	barriers  []*GraphTask
	dedicated []*GraphTask
	drain     []*GraphTask
	remaining int
	inBarrier bool
	halted    bool
	failed    error
	aborted   atomic.Bool
	stats     RunStats

	dispatched atomic.Int64
	inlined    atomic.Int64

	wake chan struct{}
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		waitTimeout:   defaultWaitTimeout,
		maxIterations: defaultMaxIterations,
		wake:          make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.waitTimeout <= 0 {
		s.waitTimeout = defaultWaitTimeout
	}
	if s.maxIterations <= 0 {
		s.maxIterations = defaultMaxIterations
	}
	return s
}

// NewChain starts a chain. priority <= 0 means the default weight 1.
func (s *Scheduler) NewChain(name string, sortKey int, priority float64) *ChainBuilder {
	if priority <= 0 {
		priority = 1
	}
	c := s.chains.alloc()
	c.name = name
	c.sortKey = sortKey
	c.priority = priority
	return &ChainBuilder{s: s, chain: c}
}

// AddChain registers a finished chain for this tick.
func (s *Scheduler) AddChain(c *Chain) {
	c.order = len(s.registered)
	s.registered = append(s.registered, c)
}

// Chains returns the registered chains in registration order.
func (s *Scheduler) Chains() []*Chain { return s.registered }

// Build constructs the task graph from the registered chains. Run calls it;
// it is exported for inspection and tests.
func (s *Scheduler) Build() (*Graph, error) {
	s.nodes.reset()
	g, err := s.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("build task graph: %w", err)
	}
	s.graph = g
	s.log.Debug("task graph built",
		zap.Int("chains", len(g.chains)),
		zap.Int("nodes", len(g.nodes)-1),
		zap.Int("edges", g.edges),
		zap.Int("dangling", g.dangling),
	)
	return g, nil
}

// Graph returns the graph of the last successful Build.
func (s *Scheduler) Graph() *Graph { return s.graph }

// Stats returns the statistics of the last Run.
func (s *Scheduler) Stats() RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Run builds the graph and executes it to completion. With concurrent false
// every task runs on the calling goroutine in a topological order; with
// concurrent true worker tasks go to the pool and the calling goroutine
// becomes the dedicated thread.
func (s *Scheduler) Run(concurrent bool, w *ecs.World) error {
	start := time.Now()
	g, err := s.Build()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.stats = RunStats{
		Chains:   len(g.chains),
		Tasks:    len(g.nodes) - 1,
		Edges:    g.edges,
		Dangling: g.dangling,
	}
	s.failed = nil
	s.mu.Unlock()
	s.aborted.Store(false)

	if concurrent {
		pool := s.pool
		if pool == nil {
			pool = NewPool(0, 0)
			defer pool.Close()
		}
		err = s.runConcurrent(g, w, pool)
	} else {
		err = s.runSerial(g, w)
	}

	s.mu.Lock()
	s.stats.Duration = time.Since(start)
	s.mu.Unlock()
	return err
}

// Reset releases every chain, task and graph node of the finished tick.
func (s *Scheduler) Reset() {
	s.tasks.reset()
	s.chains.reset()
	s.nodes.reset()
	for i := range s.registered {
		s.registered[i] = nil
	}
	s.registered = s.registered[:0]
	s.graph = nil

	s.mu.Lock()
	s.clearRuntimeLocked()
	s.mu.Unlock()
}

func (s *Scheduler) clearRuntimeLocked() {
	s.pending = s.pending[:0]
	s.waiting = s.waiting[:0]
	s.barriers = s.barriers[:0]
	s.dedicated = s.dedicated[:0]
	s.remaining = 0
	s.inBarrier = false
	s.halted = false
}

// execute runs one task body, converting a panic into the tick's failure.
// Once the tick has failed, remaining bodies are skipped.
func (s *Scheduler) execute(n *GraphTask, w *ecs.World) {
	if s.aborted.Load() {
		return
	}
	kind := n.task.kind
	if s.observer != nil {
		s.mu.Lock()
		pending := len(s.pending)
		s.mu.Unlock()
		s.observer.TaskStarted(n.name, kind, pending)
		defer s.observer.TaskFinished(n.name, kind)
	}
	defer func() {
		if r := recover(); r != nil {
			err := &TaskPanicError{Task: n.name, Recovered: r, Stack: debug.Stack()}
			s.log.Error("task panicked, aborting tick",
				zap.String("task", n.name),
				zap.Any("panic", r),
			)
			s.fail(err)
		}
	}()
	n.task.fn(w)
}

func (s *Scheduler) fail(err error) {
	s.mu.Lock()
	if s.failed == nil {
		s.failed = err
	}
	s.mu.Unlock()
	s.aborted.Store(true)
}

func (s *Scheduler) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}
