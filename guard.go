// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package ambient

import "github.com/petenewcomb/ambient-go/internal/goid"

// A Guard undoes one [Context.Bind], [Store.Bind], or [Store.BindWith]. It
// belongs to the goroutine that created it and must be released there;
// handing a Guard to another goroutine and releasing it there panics with
// [ErrGuardMoved].
//
// Guards are not meant to be copied. Pass the pointer returned by Bind.
type Guard struct {
	_         noCopy
	store     *Store
	goroutine int64
	previous  Context
	armed     bool
	released  bool
}

// Release restores the Context that was current on this goroutine when the
// guard was bound. Only the first call has any effect. Release on a guard
// whose bind did not take place, because the store was closed, does nothing.
// Release on a nil Guard does nothing. If Release panics with
// [ErrReentrant], the guard is left unreleased and may be released again
// once the goroutine's slot is no longer held.
func (g *Guard) Release() {
	if g == nil || g.released {
		return
	}
	if goid.Get() != g.goroutine {
		panic(ErrGuardMoved)
	}
	g.released = true
	if !g.armed {
		return
	}
	prev := g.previous
	g.previous = Context{}
	defer func() {
		if r := recover(); r != nil {
			// Only a lost restore consumes the guard; after anything else,
			// such as a reentrant release, the caller may release again.
			if r != ErrRestoreLost {
				g.released = false
				g.previous = prev
			}
			panic(r)
		}
	}()
	g.store.restore(g.goroutine, prev)
}

// Previous returns the Context that Release will restore. It is empty after
// Release and for guards whose bind did not take place.
func (g *Guard) Previous() Context {
	return g.previous
}

// Released reports whether Release has been called.
func (g *Guard) Released() bool {
	return g.released
}

// noCopy lets go vet's copylocks check flag copies of a Guard.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
