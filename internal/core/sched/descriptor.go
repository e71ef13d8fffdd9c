package sched

import "github.com/starfall/battlesim/internal/core/ecs"

// Access is a single declared read or write of one component type.
type Access struct {
	Key   ecs.TypeKey
	Write bool
}

// Read declares a read of component type T.
func Read[T any]() Access { return Access{Key: ecs.KeyOf[T]()} }

// Write declares a write of component type T. Write implies read.
func Write[T any]() Access { return Access{Key: ecs.KeyOf[T](), Write: true} }

// Dependencies is the read/write declaration of one task. It is used purely
// for conflict detection; nothing checks that the task body honours it.
type Dependencies struct {
	reads  []ecs.TypeKey
	writes []ecs.TypeKey
}

// Deps builds a descriptor from a list of accesses.
//
//	deps := sched.Deps(sched.Write[Rotation](), sched.Read[Velocity]())
func Deps(accesses ...Access) Dependencies {
	var d Dependencies
	for _, a := range accesses {
		if a.Write {
			d.AddWrite(a.Key)
		} else {
			d.AddRead(a.Key)
		}
	}
	return d
}

// AddRead declares a read of k. Duplicates are dropped.
func (d *Dependencies) AddRead(k ecs.TypeKey) {
	if !containsKey(d.reads, k) {
		d.reads = append(d.reads, k)
	}
}

// AddWrite declares a write of k. Duplicates are dropped.
func (d *Dependencies) AddWrite(k ecs.TypeKey) {
	if !containsKey(d.writes, k) {
		d.writes = append(d.writes, k)
	}
}

func (d Dependencies) Reads() []ecs.TypeKey  { return d.reads }
func (d Dependencies) Writes() []ecs.TypeKey { return d.writes }

// IsEmpty reports whether nothing was declared. An empty descriptor never
// conflicts with anything.
func (d Dependencies) IsEmpty() bool { return len(d.reads) == 0 && len(d.writes) == 0 }

// Conflicts reports whether tasks declaring d and o may not run at the same
// time: one writes what the other reads or writes. Symmetric.
//
// Descriptors hold a handful of keys, so the nested scan beats hashing.
func (d Dependencies) Conflicts(o Dependencies) bool {
	for _, w := range d.writes {
		if containsKey(o.reads, w) || containsKey(o.writes, w) {
			return true
		}
	}
	for _, r := range d.reads {
		if containsKey(o.writes, r) {
			return true
		}
	}
	return false
}

func (d Dependencies) clone() Dependencies {
	return Dependencies{
		reads:  append([]ecs.TypeKey(nil), d.reads...),
		writes: append([]ecs.TypeKey(nil), d.writes...),
	}
}

func containsKey(keys []ecs.TypeKey, k ecs.TypeKey) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}
