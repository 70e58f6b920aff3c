// Package assets serves deployed static files from the object store.
package assets

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/origan-dev/gateway/internal/logger"
	"github.com/origan-dev/gateway/internal/storage"
)

// Server fetches deployment assets and writes them as HTTP responses with
// content-type inference and conditional gzip compression.
type Server struct {
	store storage.ObjectStore
	log   *slog.Logger
}

// Option configures the asset server.
type Option func(*Server)

// WithLogger sets the logger for storage failures.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New creates an asset server over the given object store.
func New(store storage.ObjectStore, opts ...Option) *Server {
	s := &Server{
		store: store,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve writes the asset at assetPath within the deployment to w.
// A missing object is a terminal 404; it is never retried.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, deploymentID, assetPath string) {
	key := ObjectKey(deploymentID, assetPath)

	data, err := s.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			http.NotFound(w, r)
			return
		}
		s.log.Error("asset fetch failed",
			logger.Component("assets"), logger.Key(key), logger.Error(err))
		http.Error(w, "upstream storage unavailable", http.StatusBadGateway)
		return
	}

	contentType := ContentType(assetPath)
	w.Header().Set("Content-Type", contentType)

	if acceptsGzip(r) && Compressible(contentType) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.WriteHeader(http.StatusOK)

		// Stream through the encoder; the object buffer is the only copy
		// held in memory.
		gz := gzip.NewWriter(w)
		if _, err := gz.Write(data); err == nil {
			_ = gz.Close()
		}
		return
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ObjectKey returns the deployment-scoped storage key for an asset path.
func ObjectKey(deploymentID, assetPath string) string {
	return "deployments/" + deploymentID + "/app/" + strings.TrimPrefix(assetPath, "/")
}

// Compressible reports whether a content type benefits from gzip.
func Compressible(contentType string) bool {
	if strings.HasPrefix(contentType, "text/") {
		return true
	}
	switch strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]) {
	case "application/javascript", "application/json":
		return true
	}
	return false
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		enc = strings.TrimSpace(enc)
		if enc == "gzip" || strings.HasPrefix(enc, "gzip;") {
			return true
		}
	}
	return false
}
