// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package ambientgin_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/petenewcomb/ambient-go"
	"github.com/petenewcomb/ambient-go/ambientgin"
	"github.com/stretchr/testify/require"
)

type tenant string

func init() {
	gin.SetMode(gin.TestMode)
}

// deepCall stands in for code that has no access to the gin.Context.
func deepCall() (string, bool) {
	id, ok := ambient.Get[ambientgin.RequestID](ambient.Current())
	return string(id), ok
}

func TestMiddleware_UsesIncomingRequestID(t *testing.T) {
	chk := require.New(t)

	r := gin.New()
	r.Use(ambientgin.Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen, _ = deepCall()
		c.String(http.StatusOK, ambientgin.CurrentRequestID())
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ambientgin.HeaderRequestID, "abc-123")
	r.ServeHTTP(w, req)

	chk.Equal(http.StatusOK, w.Code)
	chk.Equal("abc-123", seen)
	chk.Equal("abc-123", w.Body.String())
	chk.Equal("abc-123", w.Header().Get(ambientgin.HeaderRequestID))

	// Released after the request
	_, ok := deepCall()
	chk.False(ok)
}

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	chk := require.New(t)

	r := gin.New()
	r.Use(ambientgin.Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen, _ = deepCall()
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	chk.Equal(http.StatusNoContent, w.Code)
	_, err := uuid.Parse(seen)
	chk.NoError(err)
	chk.Equal(seen, w.Header().Get(ambientgin.HeaderRequestID))
}

func TestMiddleware_OptionsAndRequestContext(t *testing.T) {
	chk := require.New(t)
	s := ambient.NewStore()

	r := gin.New()
	r.Use(ambientgin.Middleware(
		ambientgin.WithStore(s),
		ambientgin.WithHeader("X-Trace"),
		ambientgin.WithEnricher(func(c *gin.Context, ac ambient.Context) ambient.Context {
			return ambient.With(ac, tenant(c.GetHeader("X-Tenant")))
		}),
	))

	var fromStore, fromRequest ambient.Context
	r.GET("/", func(c *gin.Context) {
		fromStore = s.Current()
		fromRequest, _ = ambient.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace", "t-1")
	req.Header.Set("X-Tenant", "acme")
	r.ServeHTTP(w, req)

	chk.Equal("t-1", w.Header().Get("X-Trace"))
	for _, ac := range []ambient.Context{fromStore, fromRequest} {
		chk.Equal(ambientgin.RequestID("t-1"), ambient.MustGet[ambientgin.RequestID](ac))
		chk.Equal(tenant("acme"), ambient.MustGet[tenant](ac))
	}
	chk.Zero(s.Stats().Live)
	chk.Equal(s.Stats().Binds, s.Stats().Restores)
}

func TestMiddleware_ReleasesOnHandlerPanic(t *testing.T) {
	chk := require.New(t)
	s := ambient.NewStore()

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	r.Use(ambientgin.Middleware(ambientgin.WithStore(s)))
	r.GET("/", func(*gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	chk.Equal(http.StatusInternalServerError, w.Code)
	chk.Zero(s.Stats().Live)
	chk.Equal(int64(1), s.Stats().Restores)
}
