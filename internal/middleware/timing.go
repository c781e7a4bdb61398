package middleware

import (
	"net/http"
	"time"

	"photographer-backend/internal/timing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HeaderDegraded marks a response produced by a fallback.
const HeaderDegraded = "X-Degraded"

// RequestObserver receives the measurements of every finished request.
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
	ObserveBreakdown(b timing.Breakdown)
	ObserveDegraded(route string)
}

// Timing binds a fresh tracker to each request and, once the handler returns
// or panics, logs one line splitting the request time into server, database
// and cache time. observer may be nil.
func Timing(logger *zap.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, tracker := timing.Begin(r.Context())
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				b := tracker.End()
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				degraded := ww.Header().Get(HeaderDegraded) == "true"

				fields := []zap.Field{
					zap.String("requestId", GetRequestID(ctx)),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Duration("serverTime", b.Server()),
					zap.Duration("dbTime", b.Database),
					zap.Duration("cacheTime", b.Cache),
					zap.Duration("totalTime", b.Total),
				}
				if degraded {
					fields = append(fields, zap.Bool("degraded", true))
				}
				logger.Info("Request completed", fields...)

				if observer != nil {
					route := routePattern(r)
					observer.ObserveHTTPRequest(r.Method, route, status, b.Total)
					observer.ObserveBreakdown(b)
					if degraded {
						observer.ObserveDegraded(route)
					}
				}
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

// routePattern keeps metric label cardinality bounded by using the matched
// chi pattern instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
