package logger_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/origan-dev/gateway/internal/logger"
)

func TestNewRespectsLevel(t *testing.T) {
	t.Parallel()

	log := logger.New(logger.Config{Level: "warn", Format: "json"})

	assert.False(t, log.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, log.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, log.Enabled(context.Background(), slog.LevelError))
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	t.Parallel()

	log := logger.New(logger.Config{Level: "verbose"})

	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
}

func TestErrorAttr(t *testing.T) {
	t.Parallel()

	attr := logger.Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)

	empty := logger.Error(nil)
	assert.Equal(t, slog.Attr{}, empty, "nil errors produce an empty attr")
}

func TestAttrKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "component", logger.Component("resolver").Key)
	assert.Equal(t, "host", logger.Host("site.example.com").Key)
	assert.Equal(t, "domain", logger.Domain("site.example.com").Key)
	assert.Equal(t, "key", logger.Key("certs/site.example.com").Key)
	assert.Equal(t, "status", logger.StatusCode(200).Key)
	assert.Equal(t, "request_id", logger.RequestID("abc").Key)
	assert.Equal(t, "method", logger.Method("GET").Key)
	assert.Equal(t, "path", logger.Path("/").Key)
	assert.Equal(t, "duration", logger.Duration(time.Second).Key)
	assert.Equal(t, "elapsed", logger.Elapsed(time.Now()).Key)
}
