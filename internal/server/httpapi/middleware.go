package httpapi

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/logging"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// accessLog logs one line per request.
func accessLog(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			log.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}

// recovery turns a handler panic into a 500.
func recovery(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					log.Error(r.Context(), "panic", "value", p, "stack", string(debug.Stack()))
					writeErrorMessage(w, http.StatusInternalServerError, MsgInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
