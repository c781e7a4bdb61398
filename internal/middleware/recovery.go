package middleware

import (
	"net/http"
	"runtime/debug"

	"photographer-backend/pkg/api"

	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 response and an error log with the
// stack trace.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Handler panicked",
					zap.String("requestId", GetRequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)

				// A set Content-Type means the handler already started its response.
				if w.Header().Get("Content-Type") == "" {
					api.RespondError(w, http.StatusInternalServerError, api.Codes.Internal, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
