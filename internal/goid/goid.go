// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package goid reports the identifier of the calling goroutine.
//
// The runtime does not export goroutine IDs, so Get parses the header line
// that runtime.Stack writes for the current goroutine ("goroutine 42 [...").
// IDs are never reused while the process runs.
package goid

import (
	"runtime"
	"sync"
)

const prefix = "goroutine "

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 64)
		return &b
	},
}

// Get returns the ID of the calling goroutine.
func Get() int64 {
	bp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bp)

	b := *bp
	b = b[:runtime.Stack(b, false)]
	id, ok := parse(b)
	if !ok {
		panic("goid: unexpected runtime.Stack header: " + string(b))
	}
	return id
}

func parse(b []byte) (int64, bool) {
	if len(b) <= len(prefix) || string(b[:len(prefix)]) != prefix {
		return 0, false
	}
	var id int64
	digits := 0
	for _, c := range b[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
		digits++
	}
	return id, digits > 0
}
