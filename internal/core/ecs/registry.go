package ecs

import (
	"fmt"
	"reflect"
)

// Registry tracks all component stores by TypeKey and supports bulk cleanup
// on entity destroy. Stores are registered at startup only; lookups during a
// tick never mutate it.
type Registry struct {
	stores []Removable
	byKey  map[TypeKey]Removable
	names  map[TypeKey]string
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 16),
		byKey:  make(map[TypeKey]Removable, 16),
		names:  make(map[TypeKey]string, 16),
	}
}

// register adds a component store. Two distinct types hashing to the same
// key is a programming error.
func (r *Registry) register(store Removable, t reflect.Type) error {
	k := store.Key()
	if prev, ok := r.names[k]; ok {
		if prev == typeName(t) {
			return nil
		}
		return fmt.Errorf("component key collision: %s and %s share %#x", prev, typeName(t), uint64(k))
	}
	r.stores = append(r.stores, store)
	r.byKey[k] = store
	r.names[k] = typeName(t)
	return nil
}

func (r *Registry) lookup(k TypeKey) (Removable, bool) {
	s, ok := r.byKey[k]
	return s, ok
}

// Name returns the registered type name for k, or a hex fallback.
func (r *Registry) Name(k TypeKey) string {
	if n, ok := r.names[k]; ok {
		return n
	}
	return fmt.Sprintf("%#x", uint64(k))
}

// Len returns the number of registered component types.
func (r *Registry) Len() int { return len(r.stores) }

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}
