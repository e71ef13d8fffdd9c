package sched

import (
	"runtime"
	"sync"
)

// Pool is a fixed set of worker goroutines fed through a buffered channel.
// It outlives individual ticks; schedulers only borrow it.
type Pool struct {
	jobs    chan func()
	workers int
	wg      sync.WaitGroup
	once    sync.Once
}

// NewPool starts workers goroutines (GOMAXPROCS when workers < 1) with a job
// queue of the given size (workers*4 when queue < 1).
func NewPool(workers, queue int) *Pool {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queue < 1 {
		queue = workers * 4
	}
	p := &Pool{
		jobs:    make(chan func(), queue),
		workers: workers,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for fn := range p.jobs {
		fn()
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

// Submit queues fn without blocking. It returns false when the queue is full,
// in which case the caller runs fn itself.
func (p *Pool) Submit(fn func()) bool {
	select {
	case p.jobs <- fn:
		return true
	default:
		return false
	}
}

// Close stops accepting work and waits for queued jobs to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.jobs)
		p.wg.Wait()
	})
}
