package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"photographer-backend/internal/timing"
	"photographer-backend/pkg/auth"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("Should generate request ID when not provided", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, GetRequestID(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, w.Header().Get(HeaderRequestID), 36)
	})

	t.Run("Should use provided request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(HeaderRequestID, "test-request-id")
		w := httptest.NewRecorder()

		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-request-id", GetRequestID(r.Context()))
		}))
		handler.ServeHTTP(w, req)

		assert.Equal(t, "test-request-id", w.Header().Get(HeaderRequestID))
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("Should handle panic gracefully", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		w := httptest.NewRecorder()

		handler := Recovery(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("test panic")
		}))
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
		assert.Equal(t, 1, logs.FilterMessage("Handler panicked").Len())
	})

	t.Run("Should pass through normal requests", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler := Recovery(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

type recordingObserver struct {
	mu        sync.Mutex
	routes    []string
	statuses  []int
	breakdown []timing.Breakdown
	degraded  []string
}

func (o *recordingObserver) ObserveHTTPRequest(_ string, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routes = append(o.routes, route)
	o.statuses = append(o.statuses, status)
}

func (o *recordingObserver) ObserveBreakdown(b timing.Breakdown) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.breakdown = append(o.breakdown, b)
}

func (o *recordingObserver) ObserveDegraded(route string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.degraded = append(o.degraded, route)
}

func TestTimingMiddleware(t *testing.T) {
	t.Run("Should log one line with the time breakdown", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		obs := &recordingObserver{}

		r := chi.NewRouter()
		r.Use(RequestID, Timing(zap.New(core), obs))
		r.Get("/api/photographers/{id}", func(w http.ResponseWriter, r *http.Request) {
			timing.AddDatabase(r.Context(), 3*time.Millisecond)
			timing.AddCache(r.Context(), time.Millisecond)
			w.Header().Set(HeaderDegraded, "true")
			w.WriteHeader(http.StatusAccepted)
		})

		req := httptest.NewRequest("GET", "/api/photographers/7", nil)
		req.Header.Set(HeaderRequestID, "req-1")
		r.ServeHTTP(httptest.NewRecorder(), req)

		entries := logs.FilterMessage("Request completed").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["requestId"])
		assert.Equal(t, int64(http.StatusAccepted), fields["status"])
		assert.Equal(t, 3*time.Millisecond, fields["dbTime"])
		assert.Equal(t, time.Millisecond, fields["cacheTime"])
		assert.Equal(t, true, fields["degraded"])
		for _, key := range []string{"method", "path", "serverTime", "totalTime"} {
			assert.Contains(t, fields, key)
		}

		assert.Equal(t, []string{"/api/photographers/{id}"}, obs.routes)
		assert.Equal(t, []string{"/api/photographers/{id}"}, obs.degraded)
		require.Len(t, obs.breakdown, 1)
		assert.Equal(t, 3*time.Millisecond, obs.breakdown[0].Database)
	})

	t.Run("Should still log when the handler panics", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)

		handler := Timing(zap.New(core), nil)(Recovery(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		})))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))

		entries := logs.FilterMessage("Request completed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, int64(http.StatusInternalServerError), entries[0].ContextMap()["status"])
	})

	t.Run("Should freeze the tracker after the request", func(t *testing.T) {
		var tracker *timing.Tracker
		handler := Timing(nil, nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			tracker = timing.FromContext(r.Context())
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))

		require.NotNil(t, tracker)
		assert.True(t, tracker.Ended())
		tracker.AddDatabase(time.Second)
		assert.Zero(t, tracker.Database())
	})
}

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*auth.Claims, error) {
	switch token {
	case "editor":
		return &auth.Claims{UserID: "u-1", Roles: []string{"editor"}}, nil
	case "viewer":
		return &auth.Claims{UserID: "u-2"}, nil
	case "expired":
		return nil, auth.ErrExpiredToken
	}
	return nil, auth.ErrInvalidToken
}

func TestAuthenticate(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, found := auth.ClaimsFromContext(r.Context())
		if !found {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("X-User", claims.UserID)
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing authorization header"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "invalid authorization header format"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "invalid token"},
		{"expired token", "Bearer expired", http.StatusUnauthorized, "token has expired"},
		{"valid token", "bearer viewer", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/photographers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			Authenticate(stubValidator{}, nil)(ok).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := Authenticate(stubValidator{}, nil)(RequireRole("editor")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	for token, want := range map[string]int{"editor": http.StatusNoContent, "viewer": http.StatusForbidden} {
		req := httptest.NewRequest("DELETE", "/api/photographers/1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, token)
	}
}
