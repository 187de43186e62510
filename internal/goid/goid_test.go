// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package goid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet_StableWithinGoroutine(t *testing.T) {
	chk := require.New(t)
	id := Get()
	chk.Positive(id)
	chk.Equal(id, Get())
}

func TestGet_DistinctAcrossGoroutines(t *testing.T) {
	chk := require.New(t)
	const n = 32

	idCh := make(chan int64, n)
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			idCh <- Get()
			// Keep every goroutine alive until all have reported.
			<-release
		}()
	}

	seen := map[int64]bool{Get(): true}
	for range n {
		id := <-idCh
		chk.False(seen[id], "duplicate goroutine id %d", id)
		seen[id] = true
	}
	close(release)
	wg.Wait()
}

func TestParse(t *testing.T) {
	chk := require.New(t)

	id, ok := parse([]byte("goroutine 12345 [running]:\nmain.main()"))
	chk.True(ok)
	chk.Equal(int64(12345), id)

	_, ok = parse([]byte("goroutine  [running]"))
	chk.False(ok)

	_, ok = parse([]byte("thread 1"))
	chk.False(ok)

	_, ok = parse(nil)
	chk.False(ok)
}
