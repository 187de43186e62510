// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package typeid assigns process-local identifiers to Go types.
//
// An [ID] is unique per type for the life of the process but is not stable
// across processes or runs. IDs are already uniformly distributed, so
// consumers may use them directly as hash values.
package typeid

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// ID identifies a single Go type within the current process.
type ID uint64

var (
	byType  sync.Map // reflect.Type -> ID
	byID    sync.Map // ID -> reflect.Type
	mu      sync.Mutex
	counter atomic.Uint64
)

// Of returns the identifier of the static type T.
func Of[T any]() ID {
	return OfType(reflect.TypeFor[T]())
}

// OfType returns the identifier of t, registering it on first use.
func OfType(t reflect.Type) ID {
	if id, ok := byType.Load(t); ok {
		return id.(ID)
	}
	mu.Lock()
	defer mu.Unlock()
	if id, ok := byType.Load(t); ok {
		return id.(ID)
	}
	id := ID(mix(counter.Add(1)))
	byID.Store(id, t)
	byType.Store(t, id)
	return id
}

// Type returns the type that id was assigned to, or nil if id was never
// assigned by this process.
func (id ID) Type() reflect.Type {
	if t, ok := byID.Load(id); ok {
		return t.(reflect.Type)
	}
	return nil
}

func (id ID) String() string {
	if t := id.Type(); t != nil {
		return t.String()
	}
	return "<unknown type>"
}

// mix is the splitmix64 finalizer. It is a bijection on uint64, so distinct
// counter values always produce distinct IDs.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
