// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package ambientgin binds an ambient Context for the duration of each gin
// request. gin runs a request's handler chain on a single goroutine, so
// anything the handlers call can read the request's properties with
// [ambient.Current].
package ambientgin

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/petenewcomb/ambient-go"
)

// HeaderRequestID is the header a request ID is read from and echoed to.
const HeaderRequestID = "X-Request-ID"

// RequestID is the property holding the ID of the request being served.
type RequestID string

// Enricher adds request-derived properties to the Context being bound. It
// runs while the goroutine's slot is held by [ambient.Store.BindWith] and must
// derive everything from ac rather than from ambient.Current.
type Enricher func(c *gin.Context, ac ambient.Context) ambient.Context

type config struct {
	store     *ambient.Store
	header    string
	enrichers []Enricher
}

// An Option configures [Middleware].
type Option func(*config)

// WithStore binds into s instead of the process-wide store.
func WithStore(s *ambient.Store) Option {
	return func(cfg *config) {
		cfg.store = s
	}
}

// WithHeader changes the request ID header.
func WithHeader(name string) Option {
	return func(cfg *config) {
		cfg.header = name
	}
}

// WithEnricher appends e to the functions that build each request's Context.
func WithEnricher(e Enricher) Option {
	return func(cfg *config) {
		cfg.enrichers = append(cfg.enrichers, e)
	}
}

// Middleware returns a handler that, for each request:
//   - takes the request ID from the request header, or generates a UUID
//   - echoes the request ID in the response header
//   - builds a Context from the goroutine's current one plus the RequestID
//     property and the output of any enrichers
//   - carries that Context in the request's context.Context
//   - binds it for the rest of the handler chain and releases it afterwards
func Middleware(opts ...Option) gin.HandlerFunc {
	cfg := config{header: HeaderRequestID}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(c *gin.Context) {
		store := cfg.store
		if store == nil {
			store = ambient.Default()
		}

		id := c.GetHeader(cfg.header)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(cfg.header, id)

		g := store.BindWith(func(ac ambient.Context) ambient.Context {
			ac = ambient.With(ac, RequestID(id))
			for _, e := range cfg.enrichers {
				ac = e(c, ac)
			}
			return ac
		})
		defer g.Release()

		c.Request = c.Request.WithContext(ambient.NewContext(c.Request.Context(), store.Current()))
		c.Next()
	}
}

// CurrentRequestID returns the RequestID property of the process-wide
// store's current Context, or "" if none is bound.
func CurrentRequestID() string {
	id, _ := ambient.Get[RequestID](ambient.Current())
	return string(id)
}
