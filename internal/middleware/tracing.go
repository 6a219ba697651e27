package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/estatelink/tre-backend/pkg/logger"
)

// Tracing assigns every request an ID, echoes it in the X-Request-ID
// response header, and logs the request line with status and duration.
type Tracing struct {
	log *logger.Logger
}

// NewTracing creates a tracing middleware.
func NewTracing(log *logger.Logger) *Tracing {
	return &Tracing{log: log}
}

// Handler returns the tracing middleware handler.
func (m *Tracing) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := logger.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rw, r.WithContext(ctx))

		m.log.WithContext(ctx).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request handled")
	})
}

// statusWriter captures the response status for the access log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
