// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package ambient

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// RestorePolicy selects what happens when a [Guard] is released after its
// [Store] has been closed, so that the previous Context can no longer be
// restored. Closing a store is meant for process teardown, where silently
// dropping the restore is usually right; tests may prefer to hear about it.
type RestorePolicy int

const (
	// RestoreIgnore drops the lost restore silently.
	RestoreIgnore RestorePolicy = iota
	// RestoreLog reports the lost restore as a warning on the store's logger.
	RestoreLog
	// RestorePanic panics with [ErrRestoreLost].
	RestorePanic
)

var restorePolicyNames = [...]string{
	RestoreIgnore: "ignore",
	RestoreLog:    "log",
	RestorePanic:  "panic",
}

func (p RestorePolicy) String() string {
	if p >= 0 && int(p) < len(restorePolicyNames) {
		return restorePolicyNames[p]
	}
	return fmt.Sprintf("RestorePolicy(%d)", int(p))
}

// ParseRestorePolicy parses the names "ignore", "log", and "panic",
// ignoring case and surrounding space.
func ParseRestorePolicy(s string) (RestorePolicy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range restorePolicyNames {
		if n == name {
			return RestorePolicy(p), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

const (
	// DefaultShards is the number of lock shards a [Store] partitions its
	// goroutine slots across unless [WithShards] says otherwise.
	DefaultShards = 64

	// DefaultLiveWarnThreshold is the default for [WithLiveWarnThreshold].
	DefaultLiveWarnThreshold = 10000

	// maxFreeSlots bounds each shard's free list.
	maxFreeSlots = 32
)

// An Option configures a [Store].
type Option func(*options)

type options struct {
	shards   int
	logger   *zap.Logger
	policy   RestorePolicy
	liveWarn int64
}

func defaultOptions() options {
	return options{
		shards:   DefaultShards,
		logger:   zap.NewNop(),
		policy:   RestoreIgnore,
		liveWarn: DefaultLiveWarnThreshold,
	}
}

// WithShards sets the number of lock shards. Values below one are treated as
// one.
func WithShards(n int) Option {
	return func(o *options) {
		o.shards = max(n, 1)
	}
}

// WithLogger sets the logger used for store lifecycle events and, under
// [RestoreLog], lost restores. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = zap.NewNop()
		}
		o.logger = l
	}
}

// WithRestorePolicy sets the [RestorePolicy]. The default is [RestoreIgnore].
func WithRestorePolicy(p RestorePolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithLiveWarnThreshold makes the store log a warning each time the number
// of goroutines with a bound Context reaches a multiple of n. Goroutines that
// exit without releasing their guards keep counting towards that number, so
// the warning is how such leaks surface. Zero or less disables the warning.
func WithLiveWarnThreshold(n int) Option {
	return func(o *options) {
		o.liveWarn = int64(max(n, 0))
	}
}
