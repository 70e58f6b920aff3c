package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/origan-dev/gateway/internal/logger"
)

// RequestIDHeader carries the per-request correlation ID assigned (or
// propagated) by the access-log middleware.
const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// AccessLog wraps a handler with structured per-request logging and
// request-ID assignment. Incoming X-Request-ID values are trusted only
// when they parse as UUIDs.
func AccessLog(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		r.Header.Set(RequestIDHeader, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		log.Info("request",
			logger.RequestID(requestID),
			logger.Method(r.Method),
			logger.Host(r.Host),
			logger.Path(r.URL.Path),
			logger.StatusCode(rec.status),
			slog.Int64("bytes", rec.bytes),
			logger.Elapsed(start),
		)
	})
}
