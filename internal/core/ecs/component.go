package ecs

// Removable is implemented by all component stores so the World can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Key() TypeKey
	Remove(id EntityID)
	Has(id EntityID) bool
	Len() int
}

// Store is a generic typed map store for ECS components.
// No reflect, no interface{}; pure generics.
//
// Store is not synchronized. Concurrent readers are fine; anything that
// mutates the map must either run while the world is quiescent or go
// through the World's deferred command buffer. Mutating a component through
// the pointer returned by Get is a write of that component type and must be
// declared as such by the task doing it.
type Store[T any] struct {
	key  TypeKey
	data map[EntityID]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		key:  KeyOf[T](),
		data: make(map[EntityID]*T, 256),
	}
}

func (s *Store[T]) Key() TypeKey { return s.key }

func (s *Store[T]) Set(id EntityID, c *T) {
	s.data[id] = c
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *Store[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for id, c := range s.data {
		fn(id, c)
	}
}
