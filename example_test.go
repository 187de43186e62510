// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package ambient_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/petenewcomb/ambient-go"
)

type RequestID string

// logLine stands in for code far from the request handler that wants the
// request ID without taking it as a parameter.
func logLine(msg string) {
	id, ok := ambient.Get[RequestID](ambient.Current())
	if !ok {
		id = "-"
	}
	fmt.Printf("[%s] %s\n", id, msg)
}

func Example() {
	logLine("starting")

	c := ambient.With(ambient.Empty(), RequestID("req-1"))
	g := c.Bind()
	logLine("handling")
	g.Release()

	logLine("done")
	// Output:
	// [-] starting
	// [req-1] handling
	// [-] done
}

func ExampleContext_Bind_nested() {
	outer := ambient.With(ambient.Empty(), RequestID("outer"))
	g1 := outer.Bind()
	defer g1.Release()

	func() {
		g2 := ambient.With(ambient.Current(), RequestID("inner")).Bind()
		defer g2.Release()
		logLine("in nested scope")
	}()

	logLine("back in outer scope")
	// Output:
	// [inner] in nested scope
	// [outer] back in outer scope
}

func ExampleGo() {
	g := ambient.With(ambient.Empty(), RequestID("req-2")).Bind()
	defer g.Release()

	var wg sync.WaitGroup
	wg.Add(1)
	ambient.Go(func() {
		defer wg.Done()
		logLine("in worker goroutine")
	})
	wg.Wait()
	// Output:
	// [req-2] in worker goroutine
}

func ExampleBindWith() {
	g1 := ambient.With(ambient.Empty(), RequestID("req-3")).Bind()
	defer g1.Release()

	g2 := ambient.BindWith(func(c ambient.Context) ambient.Context {
		return ambient.With(c, UserID(42))
	})
	defer g2.Release()

	c := ambient.Current()
	fmt.Println(ambient.MustGet[RequestID](c), ambient.MustGet[UserID](c))
	// Output:
	// req-3 42
}

func ExampleNewContext() {
	// A queue that runs work on goroutines it owns and only passes a
	// context.Context along.
	run := func(ctx context.Context, work func()) {
		done := make(chan struct{})
		go func() {
			defer close(done)
			g := ambient.BindContext(ctx)
			defer g.Release()
			work()
		}()
		<-done
	}

	c := ambient.With(ambient.Empty(), RequestID("req-4"))
	run(ambient.NewContext(context.Background(), c), func() {
		logLine("queued work")
	})
	// Output:
	// [req-4] queued work
}
