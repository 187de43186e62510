// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package hamt implements a persistent hash array mapped trie keyed by
// pre-hashed 64-bit keys.
//
// Keys are used as their own hash, so they must already be uniformly
// distributed, and distinct keys never share a leaf: there are no collision
// buckets. Every update copies only the nodes on the path from the root to
// the affected leaf; all other nodes are shared with the original map, which
// remains valid and unchanged.
package hamt

import (
	"math/bits"
	"slices"
)

const (
	levelBits = 5
	levelMask = 1<<levelBits - 1
)

// Map is an immutable mapping from uint64 keys to arbitrary values. The zero
// value is an empty map. Maps may be copied and shared freely between
// goroutines.
type Map struct {
	root *node
	len  int
}

type node struct {
	bitmap uint32
	slots  []slot
}

// A slot holds either a subtree (child != nil) or a single key/value pair.
type slot struct {
	key   uint64
	value any
	child *node
}

func (m Map) Len() int {
	return m.len
}

// Get returns the value stored under key, if any.
func (m Map) Get(key uint64) (any, bool) {
	n := m.root
	for shift := uint(0); n != nil; shift += levelBits {
		b := bitFor(key, shift)
		if n.bitmap&b == 0 {
			return nil, false
		}
		s := &n.slots[index(n.bitmap, b)]
		if s.child != nil {
			n = s.child
			continue
		}
		if s.key == key {
			return s.value, true
		}
		return nil, false
	}
	return nil, false
}

// Set returns a map that is m with key bound to value, replacing any
// previous binding for key.
func (m Map) Set(key uint64, value any) Map {
	root, added := set(m.root, 0, key, value)
	size := m.len
	if added {
		size++
	}
	return Map{root: root, len: size}
}

// Delete returns a map that is m without key. If key is absent, m itself is
// returned.
func (m Map) Delete(key uint64) Map {
	root, removed := del(m.root, 0, key)
	if !removed {
		return m
	}
	return Map{root: root, len: m.len - 1}
}

// Range calls fn for each key/value pair until fn returns false. Iteration
// order is determined by key bits and is otherwise unspecified.
func (m Map) Range(fn func(key uint64, value any) bool) {
	if m.root != nil {
		m.root.walk(fn)
	}
}

func (n *node) walk(fn func(uint64, any) bool) bool {
	for i := range n.slots {
		s := &n.slots[i]
		if s.child != nil {
			if !s.child.walk(fn) {
				return false
			}
		} else if !fn(s.key, s.value) {
			return false
		}
	}
	return true
}

func set(n *node, shift uint, key uint64, value any) (*node, bool) {
	b := bitFor(key, shift)
	if n == nil {
		return &node{bitmap: b, slots: []slot{{key: key, value: value}}}, true
	}
	i := index(n.bitmap, b)
	if n.bitmap&b == 0 {
		return &node{
			bitmap: n.bitmap | b,
			slots:  slices.Insert(slices.Clip(n.slots), i, slot{key: key, value: value}),
		}, true
	}

	var replacement slot
	added := false
	switch cur := n.slots[i]; {
	case cur.child != nil:
		var child *node
		child, added = set(cur.child, shift+levelBits, key, value)
		replacement = slot{child: child}
	case cur.key == key:
		replacement = slot{key: key, value: value}
	default:
		replacement = slot{child: split(cur, shift+levelBits, key, value)}
		added = true
	}
	slots := slices.Clone(n.slots)
	slots[i] = replacement
	return &node{bitmap: n.bitmap, slots: slots}, added
}

// split builds the subtree holding both the existing leaf and the new pair.
// The keys differ, so they diverge at some level before shift runs past 63.
func split(existing slot, shift uint, key uint64, value any) *node {
	eb, kb := bitFor(existing.key, shift), bitFor(key, shift)
	if eb == kb {
		return &node{
			bitmap: eb,
			slots:  []slot{{child: split(existing, shift+levelBits, key, value)}},
		}
	}
	added := slot{key: key, value: value}
	if eb < kb {
		return &node{bitmap: eb | kb, slots: []slot{existing, added}}
	}
	return &node{bitmap: eb | kb, slots: []slot{added, existing}}
}

func del(n *node, shift uint, key uint64) (*node, bool) {
	if n == nil {
		return nil, false
	}
	b := bitFor(key, shift)
	if n.bitmap&b == 0 {
		return n, false
	}
	i := index(n.bitmap, b)
	cur := n.slots[i]
	if cur.child == nil {
		if cur.key != key {
			return n, false
		}
		return n.without(i, b), true
	}

	child, removed := del(cur.child, shift+levelBits, key)
	if !removed {
		return n, false
	}
	if child == nil {
		return n.without(i, b), true
	}
	slots := slices.Clone(n.slots)
	if len(child.slots) == 1 && child.slots[0].child == nil {
		// Pull a lone leaf up so lookups stay as shallow as possible.
		slots[i] = child.slots[0]
	} else {
		slots[i] = slot{child: child}
	}
	return &node{bitmap: n.bitmap, slots: slots}, true
}

func (n *node) without(i int, b uint32) *node {
	if len(n.slots) == 1 {
		return nil
	}
	return &node{
		bitmap: n.bitmap &^ b,
		slots:  slices.Delete(slices.Clone(n.slots), i, i+1),
	}
}

func bitFor(key uint64, shift uint) uint32 {
	return 1 << ((key >> shift) & levelMask)
}

func index(bitmap, b uint32) int {
	return bits.OnesCount32(bitmap & (b - 1))
}
