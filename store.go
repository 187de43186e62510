// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package ambient

import (
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"
	"github.com/petenewcomb/ambient-go/internal/goid"
	"go.uber.org/zap"
)

// A Store holds the current [Context] of every goroutine that has bound one.
// Each goroutine sees only its own entry: binding a Context on one goroutine
// is never visible to another.
//
// Most programs use the process-wide store behind [Current], [Context.Bind],
// and [BindWith]. Separate stores are useful for isolation in tests and for
// libraries that must not interfere with the process-wide store.
//
// A goroutine that has nothing bound, or whose guards have all been released,
// occupies no space in the store. A goroutine that exits while still holding
// an unreleased guard leaves its entry behind until the store is closed, so
// guards should always be released, typically with defer. Such entries are
// counted in [Stats].Live, and a warning is logged each time Live reaches a
// multiple of the threshold set by [WithLiveWarnThreshold].
//
// Store methods are safe for concurrent use.
type Store struct {
	shards []shard
	closed atomic.Bool
	logger *zap.Logger
	policy RestorePolicy

	// liveWarn is the Live count at each multiple of which a warning is
	// logged; zero disables the warning.
	liveWarn int64

	binds        atomic.Int64
	restores     atomic.Int64
	lostRestores atomic.Int64
	live         atomic.Int64
}

type shard struct {
	mu    sync.Mutex
	slots map[int64]*slot
	free  deque.Deque[*slot]
}

// A slot is only ever read or written by the goroutine that owns it; the
// shard lock protects the map that holds it.
type slot struct {
	current Context
	busy    bool
}

// fallback is what every goroutine sees once a store has been closed.
var fallback = Context{}

// NewStore returns an open, empty store.
func NewStore(opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store{
		shards:   make([]shard, o.shards),
		logger:   o.logger.With(zap.String("component", "ambient")),
		policy:   o.policy,
		liveWarn: o.liveWarn,
	}
	for i := range s.shards {
		s.shards[i].slots = make(map[int64]*slot)
	}
	return s
}

var defaultStore atomic.Pointer[Store]

func init() {
	defaultStore.Store(NewStore())
}

// Default returns the process-wide store used by the package-level
// functions.
func Default() *Store {
	return defaultStore.Load()
}

// SetDefault replaces the process-wide store and returns the previous one.
// Guards bound on the previous store still restore into it. SetDefault is
// intended for program initialization and tests.
func SetDefault(s *Store) *Store {
	if s == nil {
		panic("ambient: SetDefault called with nil store")
	}
	return defaultStore.Swap(s)
}

// Current returns the calling goroutine's current Context from the
// process-wide store. See [Store.Current].
func Current() Context {
	return Default().Current()
}

// Bind makes c the calling goroutine's current Context in the process-wide
// store. See [Store.Bind].
func (c Context) Bind() *Guard {
	return Default().Bind(c)
}

// BindWith binds the Context returned by fn in the process-wide store. See
// [Store.BindWith].
func BindWith(fn func(Context) Context) *Guard {
	return Default().BindWith(fn)
}

// Current returns the Context bound on the calling goroutine, or an empty
// Context if none is bound. Once the store is closed, Current always returns
// an empty Context.
//
// Current panics with [ErrReentrant] if called from inside a [Store.BindWith]
// callback running on the same goroutine.
func (s *Store) Current() Context {
	if s.closed.Load() {
		return fallback
	}
	id := goid.Get()
	sh := s.shard(id)
	sh.mu.Lock()
	sl := sh.slots[id]
	sh.mu.Unlock()
	if sl == nil {
		return Context{}
	}
	if sl.busy {
		panic(ErrReentrant)
	}
	return sl.current
}

// Bind makes c the current Context of the calling goroutine and returns a
// Guard that restores the previously current Context when released:
//
//	g := s.Bind(c)
//	defer g.Release()
//
// Guards nest. Releasing them in the reverse of the order they were bound in
// restores each earlier Context in turn. Releasing a guard out of order
// restores the Context that was current when that guard was bound, silently
// discarding any bindings made after it; this is not detected.
//
// If the store is closed, Bind does nothing and the returned Guard's
// Release is a no-op.
//
// Bind panics with [ErrReentrant] if called from inside a [Store.BindWith]
// callback running on the same goroutine.
func (s *Store) Bind(c Context) *Guard {
	id := goid.Get()
	g := &Guard{store: s, goroutine: id}
	if prev, ok := s.swap(id, c); ok {
		g.previous = prev
		g.armed = true
		s.binds.Add(1)
	}
	return g
}

// BindWith derives a new Context from the calling goroutine's current one and
// binds it, as if by
//
//	s.Bind(fn(s.Current()))
//
// except that the goroutine's slot is held exclusively while fn runs. Any
// call from fn to Current, Bind, or BindWith on the same store and goroutine
// is a programming error and panics with [ErrReentrant]; the slot is left as
// it was before BindWith was called.
//
// If the store is closed, fn is not called and the returned Guard's Release
// is a no-op.
func (s *Store) BindWith(fn func(Context) Context) *Guard {
	id := goid.Get()
	g := &Guard{store: s, goroutine: id}

	sl, ok := s.acquire(id)
	if !ok {
		return g
	}
	next := func() Context {
		finished := false
		defer func() {
			if !finished {
				s.releaseBusy(id, sl)
			}
		}()
		out := fn(sl.current)
		finished = true
		return out
	}()

	if prev, ok := s.commit(id, sl, next); ok {
		g.previous = prev
		g.armed = true
		s.binds.Add(1)
	}
	return g
}

// Close tears the store down. All bound Contexts are discarded, Current
// returns an empty Context from then on, and Bind no longer binds anything.
// Guards bound before Close cannot restore their previous Context; see
// [RestorePolicy]. Close is idempotent.
func (s *Store) Close() {
	if s.closed.Swap(true) {
		return
	}
	discarded := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		discarded += len(sh.slots)
		clear(sh.slots)
		sh.free.Clear()
		sh.mu.Unlock()
	}
	s.live.Store(0)
	s.logger.Debug("Store closed", zap.Int("discarded_slots", discarded))
}

// Closed reports whether [Store.Close] has been called.
func (s *Store) Closed() bool {
	return s.closed.Load()
}

// Stats is a snapshot of a store's activity counters.
type Stats struct {
	// Binds counts successful Bind and BindWith calls.
	Binds int64
	// Restores counts guard releases that restored a previous Context.
	Restores int64
	// LostRestores counts guard releases that found the store closed.
	LostRestores int64
	// Live is the number of goroutines with a non-empty Context bound,
	// including goroutines that exited without releasing their guards. A
	// Live count that keeps growing under steady load indicates such a leak.
	Live int64
}

// Stats returns the store's counters. The fields are read independently and
// may be mutually inconsistent while other goroutines are binding.
func (s *Store) Stats() Stats {
	return Stats{
		Binds:        s.binds.Load(),
		Restores:     s.restores.Load(),
		LostRestores: s.lostRestores.Load(),
		Live:         s.live.Load(),
	}
}

func (s *Store) shard(id int64) *shard {
	return &s.shards[uint64(id)%uint64(len(s.shards))]
}

// swap replaces the goroutine's current Context with c and returns the
// previous one. It returns false if the store is closed.
func (s *Store) swap(id int64, c Context) (Context, bool) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s.closed.Load() {
		return Context{}, false
	}

	sl := sh.slots[id]
	if sl == nil {
		if c.Len() != 0 {
			sl = sh.alloc()
			sl.current = c
			sh.slots[id] = sl
			s.addLive()
		}
		return Context{}, true
	}
	if sl.busy {
		panic(ErrReentrant)
	}
	prev := sl.current
	if c.Len() == 0 {
		sh.recycle(id, sl)
		s.live.Add(-1)
	} else {
		sl.current = c
	}
	return prev, true
}

// acquire marks the goroutine's slot busy, creating it if necessary.
func (s *Store) acquire(id int64) (*slot, bool) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s.closed.Load() {
		return nil, false
	}
	sl := sh.slots[id]
	if sl == nil {
		sl = sh.alloc()
		sh.slots[id] = sl
		s.addLive()
	} else if sl.busy {
		panic(ErrReentrant)
	}
	sl.busy = true
	return sl, true
}

// commit ends an acquire by binding c.
func (s *Store) commit(id int64, sl *slot, c Context) (Context, bool) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sl.busy = false
	if s.closed.Load() {
		return Context{}, false
	}
	prev := sl.current
	sl.current = c
	if c.Len() == 0 {
		sh.recycle(id, sl)
		s.live.Add(-1)
	}
	return prev, true
}

// releaseBusy ends an acquire without changing the slot's Context.
func (s *Store) releaseBusy(id int64, sl *slot) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sl.busy = false
	if !s.closed.Load() && sl.current.Len() == 0 {
		sh.recycle(id, sl)
		s.live.Add(-1)
	}
}

func (s *Store) addLive() {
	n := s.live.Add(1)
	if s.liveWarn > 0 && n%s.liveWarn == 0 {
		s.logger.Warn("Many goroutines hold a bound context; check for unreleased guards",
			zap.Int64("live", n))
	}
}

func (sh *shard) alloc() *slot {
	if sh.free.Len() > 0 {
		return sh.free.PopBack()
	}
	return &slot{}
}

func (sh *shard) recycle(id int64, sl *slot) {
	delete(sh.slots, id)
	*sl = slot{}
	if sh.free.Len() < maxFreeSlots {
		sh.free.PushBack(sl)
	}
}

// restore is called by Guard.Release on the guard's own goroutine.
func (s *Store) restore(id int64, prev Context) {
	if _, ok := s.swap(id, prev); ok {
		s.restores.Add(1)
		return
	}
	s.lostRestores.Add(1)
	switch s.policy {
	case RestoreLog:
		s.logger.Warn("Previous context lost",
			zap.Int64("goroutine", id),
			zap.Int("properties", prev.Len()),
			zap.Error(ErrRestoreLost))
	case RestorePanic:
		panic(ErrRestoreLost)
	}
}
