// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package ambient propagates request-scoped values, such as request IDs,
// user identity, trace spans, or configuration overrides, through code that
// does not pass them explicitly. Logically related code on either side of a
// function, package, or plugin boundary can share such values without every
// intermediate signature having to mention them.
//
// A [Context] is an immutable set of properties indexed by Go type. [With]
// returns a new Context with one more property, leaving the original
// unchanged, and [Get] looks a property up by its type:
//
//	type UserID int
//
//	c := ambient.With(ambient.Empty(), UserID(42))
//	id, ok := ambient.Get[UserID](c) // 42, true
//
// A Context becomes ambient by binding it to the current goroutine. The
// returned [Guard] restores whatever was bound before when released:
//
//	g := c.Bind()
//	defer g.Release()
//	handle() // ambient.Current() returns c in here
//
// Each goroutine has its own current Context; a new goroutine starts with an
// empty one. Use [Go] or [Wrap] to carry the caller's Context into a new
// goroutine, and [NewContext] with [BindContext] to carry it through APIs
// that already pass a context.Context.
//
// Binding is purely local to a goroutine, never blocks, and involves no
// cross-goroutine synchronization beyond short lock-sharded map updates.
package ambient
