// Package gateway is the HTTP surface of the edge: it serves ACME
// challenges and health directly, and routes everything else through
// resolve → route → dispatch.
package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/origan-dev/gateway/internal/challenge"
	"github.com/origan-dev/gateway/internal/domain"
	"github.com/origan-dev/gateway/internal/logger"
	"github.com/origan-dev/gateway/internal/manifest"
	"github.com/origan-dev/gateway/internal/resolver"
	"github.com/origan-dev/gateway/internal/router"
)

// ACMEChallengePrefix is served before any domain resolution, with no
// certificate-status checks: the CA must be able to validate a domain
// before its certificate exists.
const ACMEChallengePrefix = "/.well-known/acme-challenge/"

// Resolver maps a host header to its deployment configuration.
type Resolver interface {
	Resolve(ctx context.Context, host string) (*resolver.ResolvedConfig, error)
}

// AssetServer serves static files from deployment storage.
type AssetServer interface {
	Serve(w http.ResponseWriter, r *http.Request, deploymentID, assetPath string)
}

// FunctionForwarder forwards dynamic requests to the execution runtime.
type FunctionForwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, functionPath string)
}

// DomainManager handles custom-domain attachment for the control plane.
type DomainManager interface {
	AttachDomain(ctx context.Context, name, projectID string) (*domain.Domain, error)
	DetachDomain(ctx context.Context, name string) error
}

// Config holds gateway-surface settings.
type Config struct {
	// InternalToken guards the control-plane domain endpoints. When empty
	// those endpoints are disabled.
	InternalToken string `env:"GATEWAY_INTERNAL_TOKEN"`
}

// Gateway wires resolver, router, asset server, proxy, and challenge
// store behind a single http.Handler.
type Gateway struct {
	resolver   Resolver
	assets     AssetServer
	proxy      FunctionForwarder
	challenges challenge.Store
	domains    DomainManager
	log        *slog.Logger
	token      string
	ready      []func(context.Context) error
}

// Option configures the gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gateway) {
		g.log = log
	}
}

// WithDomainManager enables the internal domain attach/detach endpoints.
func WithDomainManager(dm DomainManager) Option {
	return func(g *Gateway) {
		g.domains = dm
	}
}

// WithReadyChecks registers dependency probes served on /health?ready=1.
func WithReadyChecks(checks ...func(context.Context) error) Option {
	return func(g *Gateway) {
		g.ready = append(g.ready, checks...)
	}
}

// New creates a gateway handler.
func New(cfg Config, res Resolver, assets AssetServer, proxy FunctionForwarder, challenges challenge.Store, opts ...Option) *Gateway {
	g := &Gateway{
		resolver:   res,
		assets:     assets,
		proxy:      proxy,
		challenges: challenges,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		token:      strings.TrimSpace(cfg.InternalToken),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case strings.HasPrefix(path, ACMEChallengePrefix):
		g.handleChallenge(w, r)
	case path == "/health":
		g.handleHealth(w, r)
	case path == "/internal/v1/domains" || strings.HasPrefix(path, "/internal/v1/domains/"):
		g.handleDomains(w, r)
	default:
		g.handleSite(w, r)
	}
}

// handleChallenge serves HTTP-01 key authorizations straight from the
// challenge store, keyed by token. Deliberately decoupled from domain
// resolution and the database so a certificate operation can never stall
// tenant traffic, and vice versa.
func (g *Gateway) handleChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := strings.TrimPrefix(r.URL.Path, ACMEChallengePrefix)
	if token == "" || strings.Contains(token, "/") {
		http.NotFound(w, r)
		return
	}

	keyAuth, err := g.challenges.Get(r.Context(), token)
	if err != nil {
		if !errors.Is(err, challenge.ErrChallengeNotFound) {
			g.log.Error("challenge lookup failed",
				logger.Component("gateway"), logger.Error(err))
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, keyAuth)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("ready") == "" || len(g.ready) == 0 {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "ALIVE")
		return
	}

	for _, check := range g.ready {
		if err := check(r.Context()); err != nil {
			g.log.Error("readiness check failed",
				logger.Component("gateway"), logger.Error(err))
			http.Error(w, "NOT READY", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "READY")
}

// handleSite is the tenant-traffic hot path: resolve the host to a
// deployment, match the path against its manifest, dispatch.
func (g *Gateway) handleSite(w http.ResponseWriter, r *http.Request) {
	cfg, err := g.resolver.Resolve(r.Context(), r.Host)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrHostNotFound):
			http.NotFound(w, r)
		case errors.Is(err, resolver.ErrUpstreamUnavailable):
			g.log.Error("domain resolution unavailable",
				logger.Component("gateway"), logger.Host(r.Host), logger.Error(err))
			http.Error(w, "service temporarily unavailable", http.StatusBadGateway)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	entry := router.Match(r.URL.Path, &cfg.Manifest)
	if entry == nil {
		http.NotFound(w, r)
		return
	}

	if entry.Kind == manifest.RouteStatic {
		g.assets.Serve(w, r, cfg.DeploymentID, entry.TargetPath)
		return
	}
	g.proxy.Forward(w, r, entry.TargetPath)
}

// handleDomains exposes domain attachment to the control plane:
// POST /internal/v1/domains {"domain": "...", "projectId": "..."} and
// DELETE /internal/v1/domains/{name}. Guarded by a shared token.
func (g *Gateway) handleDomains(w http.ResponseWriter, r *http.Request) {
	if g.domains == nil || g.token == "" {
		http.NotFound(w, r)
		return
	}
	if !g.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid internal token")
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/internal/v1/domains":
		var payload struct {
			Domain    string `json:"domain"`
			ProjectID string `json:"projectId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		d, err := g.domains.AttachDomain(r.Context(), payload.Domain, payload.ProjectID)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, domain.ErrDomainExists) {
				status = http.StatusConflict
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"domain": d.Name,
			"status": string(d.CertificateStatus),
		})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/internal/v1/domains/"):
		name := strings.TrimPrefix(r.URL.Path, "/internal/v1/domains/")
		if name == "" || strings.Contains(name, "/") {
			http.NotFound(w, r)
			return
		}

		if err := g.domains.DetachDomain(r.Context(), name); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrDomainNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (g *Gateway) authorized(r *http.Request) bool {
	token := strings.TrimSpace(r.Header.Get("X-Internal-Token"))
	return len(token) == len(g.token) &&
		subtle.ConstantTimeCompare([]byte(token), []byte(g.token)) == 1
}
