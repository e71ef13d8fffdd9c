package ecs

import (
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// TypeKey is a stable identifier for a component type. It is the xxhash of
// the fully-qualified type name, so it is identical across runs and builds.
// Only ever compared for equality.
type TypeKey uint64

var typeKeys sync.Map // reflect.Type → TypeKey

// KeyOf returns the TypeKey for component type T.
func KeyOf[T any]() TypeKey {
	return keyOfType(reflect.TypeOf((*T)(nil)).Elem())
}

func keyOfType(t reflect.Type) TypeKey {
	if k, ok := typeKeys.Load(t); ok {
		return k.(TypeKey)
	}
	k := TypeKey(xxhash.Sum64String(typeName(t)))
	typeKeys.Store(t, k)
	return k
}

// typeName is the package path qualified name. Unnamed types fall back to
// their literal spelling.
func typeName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
