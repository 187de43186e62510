// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package ambient

type constError string

func (e constError) Error() string {
	return string(e)
}

// ErrReentrant is the panic value raised when a goroutine reads or replaces
// its current Context from inside a [BindWith] callback, while the slot is
// already held exclusively.
const ErrReentrant = constError("ambient context accessed reentrantly during BindWith")

// ErrGuardMoved is the panic value raised when a [Guard] is released on a
// goroutine other than the one that created it.
const ErrGuardMoved = constError("guard released on a different goroutine than it was bound on")

// ErrMissingProperty is wrapped by the panic value of [MustGet].
const ErrMissingProperty = constError("property not present in context")

// ErrRestoreLost reports a [Guard] that could not restore its previous
// Context because its [Store] was already closed. See [RestorePolicy].
const ErrRestoreLost = constError("previous context lost: store closed before guard release")

// ErrInvalidPolicy is returned when parsing an unknown [RestorePolicy] name.
const ErrInvalidPolicy = constError("invalid restore policy")
