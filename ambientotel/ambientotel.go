// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package ambientotel carries OpenTelemetry trace and baggage state in an
// ambient Context, so code that cannot receive a context.Context can still
// parent its spans correctly and read request baggage.
//
// Trace state is stored as two properties: the [trace.SpanContext] of the
// active span and the [baggage.Baggage] of the request. Neither is a live
// span; spans started from a restored context.Context become children of a
// remote parent with the captured SpanContext.
package ambientotel

import (
	"context"

	"github.com/petenewcomb/ambient-go"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"
)

// Capture returns c extended with the span context and baggage found in ctx.
// Properties whose value in ctx is empty are left as they are in c.
func Capture(c ambient.Context, ctx context.Context) ambient.Context {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		c = ambient.With(c, sc)
	}
	if b := baggage.FromContext(ctx); b.Len() > 0 {
		c = ambient.With(c, b)
	}
	return c
}

// Restore returns a copy of ctx carrying the span context and baggage held in
// c. Values already present in ctx are replaced only if c holds a
// replacement.
func Restore(ctx context.Context, c ambient.Context) context.Context {
	if sc, ok := ambient.Get[trace.SpanContext](c); ok && sc.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, sc)
	}
	if b, ok := ambient.Get[baggage.Baggage](c); ok {
		ctx = baggage.ContextWithBaggage(ctx, b)
	}
	return ctx
}

// Bind captures ctx's trace state into the goroutine's current Context in
// the process-wide store and binds the result. Release the returned guard
// when the traced work ends.
func Bind(ctx context.Context) *ambient.Guard {
	return BindStore(ambient.Default(), ctx)
}

// BindStore is like [Bind] but binds into s.
func BindStore(s *ambient.Store, ctx context.Context) *ambient.Guard {
	return s.BindWith(func(c ambient.Context) ambient.Context {
		return Capture(c, ctx)
	})
}

// ContextFromCurrent returns a copy of ctx carrying the trace state of the
// goroutine's current Context in the process-wide store.
func ContextFromCurrent(ctx context.Context) context.Context {
	return ContextFromStore(ambient.Default(), ctx)
}

// ContextFromStore is like [ContextFromCurrent] but reads from s.
func ContextFromStore(s *ambient.Store, ctx context.Context) context.Context {
	return Restore(ctx, s.Current())
}

// SpanContext returns the span context held in c, or an invalid one.
func SpanContext(c ambient.Context) trace.SpanContext {
	sc, _ := ambient.Get[trace.SpanContext](c)
	return sc
}

// Baggage returns the baggage held in c, or an empty one.
func Baggage(c ambient.Context) baggage.Baggage {
	b, _ := ambient.Get[baggage.Baggage](c)
	return b
}
