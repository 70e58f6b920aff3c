package logger

import (
	"log/slog"
	"time"
)

// Attribute helpers use the empty Attr pattern for nil safety, so call sites
// can write log.Info("msg", logger.Error(err)) without explicit nil checks.

// Error creates an attribute for a single error under the key "error".
// Returns an empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component identifies the subsystem emitting the log record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed calculates and logs the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// Host records the inbound host header being served.
func Host(host string) slog.Attr {
	return slog.String("host", host)
}

// Domain records a custom domain name in certificate operations.
func Domain(name string) slog.Attr {
	return slog.String("domain", name)
}

// Key records an object-store key.
func Key(key string) slog.Attr {
	return slog.String("key", key)
}

// StatusCode records an HTTP response status code.
func StatusCode(code int) slog.Attr {
	return slog.Int("status", code)
}

// RequestID records the correlation ID attached to a request.
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

// Method records the HTTP request method.
func Method(m string) slog.Attr {
	return slog.String("method", m)
}

// Path records the HTTP request path.
func Path(p string) slog.Attr {
	return slog.String("path", p)
}
