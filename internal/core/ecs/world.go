package ecs

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and a deferred command buffer.
//
// While the world is in deferred mode (between BeginDeferred and EndDeferred)
// structural changes (Add, Remove, Destroy) are queued instead of applied, so
// tasks iterating stores in parallel never observe a map being resized under
// them. The queue is applied by Sync or by the outermost EndDeferred.
type World struct {
	pool     *EntityPool
	registry *Registry

	deferred atomic.Int32

	cmdMu        sync.Mutex
	commands     []func(*World)
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		commands:     make([]func(*World), 0, 64),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

// Register creates the store for T. Registering the same type twice returns
// the existing store.
func Register[T any](w *World) *Store[T] {
	if s, ok := w.registry.lookup(KeyOf[T]()); ok {
		if typed, ok := s.(*Store[T]); ok {
			return typed
		}
	}
	s := NewStore[T]()
	if err := w.registry.register(s, reflect.TypeOf((*T)(nil)).Elem()); err != nil {
		panic("ecs: " + err.Error())
	}
	return s
}

// StoreOf returns the store for T. Panics if T was never registered, since
// that is a wiring bug rather than a runtime condition.
func StoreOf[T any](w *World) *Store[T] {
	s, ok := w.registry.lookup(KeyOf[T]())
	if !ok {
		var zero T
		panic(fmt.Sprintf("ecs: component %T not registered", zero))
	}
	return s.(*Store[T])
}

// CreateEntity allocates an id. Safe to call from concurrently running tasks;
// components for the new entity should be attached with Add.
func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Len returns the number of live entities.
func (w *World) Len() int { return w.pool.Len() }

// Get returns the T component of id.
func Get[T any](w *World, id EntityID) (*T, bool) {
	return StoreOf[T](w).Get(id)
}

// Has reports whether id carries a T component.
func Has[T any](w *World, id EntityID) bool {
	return StoreOf[T](w).Has(id)
}

// Add attaches (or replaces) the T component of id.
func Add[T any](w *World, id EntityID, c T) {
	s := StoreOf[T](w)
	if w.Deferred() {
		w.enqueue(func(*World) {
			if w.pool.Alive(id) {
				v := c
				s.Set(id, &v)
			}
		})
		return
	}
	s.Set(id, &c)
}

// Remove detaches the T component of id.
func Remove[T any](w *World, id EntityID) {
	s := StoreOf[T](w)
	if w.Deferred() {
		w.enqueue(func(*World) { s.Remove(id) })
		return
	}
	s.Remove(id)
}

// Destroy removes id and all of its components. In deferred mode the entity
// stays alive until the queue is applied.
func (w *World) Destroy(id EntityID) {
	if w.Deferred() {
		w.MarkForDestruction(id)
		return
	}
	w.destroyNow(id)
}

// MarkForDestruction queues an entity for destruction at the next Sync.
func (w *World) MarkForDestruction(id EntityID) {
	w.cmdMu.Lock()
	w.destroyQueue = append(w.destroyQueue, id)
	w.cmdMu.Unlock()
}

func (w *World) destroyNow(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
}

func (w *World) enqueue(fn func(*World)) {
	w.cmdMu.Lock()
	w.commands = append(w.commands, fn)
	w.cmdMu.Unlock()
}

// Deferred reports whether structural changes are currently being queued.
func (w *World) Deferred() bool { return w.deferred.Load() > 0 }

// BeginDeferred enters deferred mode. Calls nest.
func (w *World) BeginDeferred() {
	w.deferred.Add(1)
}

// EndDeferred leaves one level of deferred mode and applies the queue once
// the outermost bracket closes.
func (w *World) EndDeferred() {
	if w.deferred.Add(-1) == 0 {
		w.Sync()
	}
}

// Pending returns the number of queued commands and destructions.
func (w *World) Pending() int {
	w.cmdMu.Lock()
	defer w.cmdMu.Unlock()
	return len(w.commands) + len(w.destroyQueue)
}

// Sync applies every queued command, then every queued destruction, in
// queue order. It must only be called while no task is iterating the world,
// i.e. from a barrier or outside a tick.
func (w *World) Sync() {
	w.cmdMu.Lock()
	cmds := w.commands
	dead := w.destroyQueue
	w.commands = make([]func(*World), 0, cap(cmds))
	w.destroyQueue = make([]EntityID, 0, cap(dead))
	w.cmdMu.Unlock()

	for _, fn := range cmds {
		fn(w)
	}
	for _, id := range dead {
		w.destroyNow(id)
	}
}
