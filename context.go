// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package ambient

import (
	"fmt"
	"reflect"

	"github.com/petenewcomb/ambient-go/internal/hamt"
	"github.com/petenewcomb/ambient-go/internal/typeid"
)

// A Context is an immutable set of properties indexed by type. Each Go type
// names its own property slot, so unrelated packages can attach values
// without coordinating on key names: a package that defines
//
//	type RequestID string
//
// owns the RequestID property of every Context.
//
// Adding a property never changes an existing Context. [With] returns a new
// Context that shares structure with the original, so holders of the old
// Context never observe the addition. Contexts are therefore safe to copy and
// to share between goroutines, provided the property values themselves are
// safe for concurrent reads.
//
// The zero value of Context is empty and ready to use.
type Context struct {
	props hamt.Map
}

// Empty returns a Context with no properties. It is equivalent to the zero
// value and exists for readability at call sites.
func Empty() Context {
	return Context{}
}

// With returns a copy of c in which the property of static type T is v. Any
// value of type T already present in c is replaced in the copy; c itself is
// left untouched.
//
// The key is the static type T, not the dynamic type of v, so
//
//	With[error](c, io.EOF)
//
// sets the error property, not an *errors.errorString one.
func With[T any](c Context, v T) Context {
	return Context{props: c.props.Set(uint64(typeid.Of[T]()), v)}
}

// With is like the package-level [With] but keys the property by the dynamic
// type of v. A nil v returns c unchanged.
func (c Context) With(v any) Context {
	if v == nil {
		return c
	}
	return Context{props: c.props.Set(uint64(typeid.OfType(reflect.TypeOf(v))), v)}
}

// Without returns a copy of c that has no property of type T.
func Without[T any](c Context) Context {
	return Context{props: c.props.Delete(uint64(typeid.Of[T]()))}
}

// Get returns the property of exact type T stored in c. The second result is
// false if c has no such property. Lookup is by type identity only: a
// property stored as a concrete type is not found when asking for an
// interface it implements, and vice versa.
func Get[T any](c Context) (T, bool) {
	v, ok := c.props.Get(uint64(typeid.Of[T]()))
	if !ok {
		var zero T
		return zero, false
	}
	// A stored nil interface value comes back as an untyped nil.
	t, _ := v.(T)
	return t, true
}

// Has reports whether c carries a property of type T.
func Has[T any](c Context) bool {
	_, ok := c.props.Get(uint64(typeid.Of[T]()))
	return ok
}

// MustGet is like [Get] but panics with an error wrapping
// [ErrMissingProperty] if the property is absent.
func MustGet[T any](c Context) T {
	v, ok := Get[T](c)
	if !ok {
		panic(fmt.Errorf("%w: %v", ErrMissingProperty, reflect.TypeFor[T]()))
	}
	return v
}

// Len returns the number of properties in c.
func (c Context) Len() int {
	return c.props.Len()
}

// Types returns the types of the properties in c, in unspecified order.
func (c Context) Types() []reflect.Type {
	types := make([]reflect.Type, 0, c.props.Len())
	c.props.Range(func(key uint64, _ any) bool {
		types = append(types, typeid.ID(key).Type())
		return true
	})
	return types
}

// String reports only the number of properties; property values may be
// sensitive and are never formatted.
func (c Context) String() string {
	return fmt.Sprintf("ambient.Context{properties: %d}", c.props.Len())
}
