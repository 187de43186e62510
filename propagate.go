// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package ambient

import "context"

// Go runs fn in a new goroutine with the calling goroutine's current Context
// from the process-wide store bound for the duration of fn. See [Store.Go].
func Go(fn func()) {
	Default().Go(fn)
}

// Wrap captures the current Context from the process-wide store. See
// [Store.Wrap].
func Wrap(fn func()) func() {
	return Default().Wrap(fn)
}

// Go runs fn in a new goroutine with the caller's current Context bound, so
// that fn observes the same properties its caller did. The binding is
// released when fn returns or panics.
func (s *Store) Go(fn func()) {
	go s.Wrap(fn)()
}

// Wrap captures the calling goroutine's current Context and returns a
// function that binds it, runs fn, and releases the binding. The returned
// function may be called from any goroutine, any number of times.
func (s *Store) Wrap(fn func()) func() {
	c := s.Current()
	return func() {
		g := s.Bind(c)
		defer g.Release()
		fn()
	}
}

type contextKey struct{}

// NewContext returns a copy of ctx that carries c. Use it to hand a Context
// across an API boundary that already threads a context.Context, such as an
// RPC or a task queue that runs work on goroutines it owns.
func NewContext(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the Context carried by ctx, if any.
func FromContext(ctx context.Context) (Context, bool) {
	c, ok := ctx.Value(contextKey{}).(Context)
	return c, ok
}

// BindContext binds the Context carried by ctx in the process-wide store, or
// an empty Context if ctx carries none. See [Store.BindContext].
func BindContext(ctx context.Context) *Guard {
	return Default().BindContext(ctx)
}

// BindContext binds the Context carried by ctx, or an empty Context if ctx
// carries none.
func (s *Store) BindContext(ctx context.Context) *Guard {
	c, _ := FromContext(ctx)
	return s.Bind(c)
}
