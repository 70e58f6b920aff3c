// Package resolver maps inbound host headers to deployment configurations,
// caching lookups against the deployment-metadata service.
//
// The cache is a bounded LRU with per-host single-flight coordination:
// concurrent misses for one host coalesce into a single upstream call, hits
// are served immediately even when stale (a background refresh bounds
// staleness), and upstream failures are never cached. Unregistered hosts
// are remembered in a separate short-lived negative table to limit upstream
// load under domain scanning.
package resolver

import (
	"container/list"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/origan-dev/gateway/internal/logger"
	"github.com/origan-dev/gateway/internal/manifest"
	"github.com/origan-dev/gateway/internal/metadata"
)

// Config tunes the resolver cache.
type Config struct {
	CacheSize   int           `env:"RESOLVER_CACHE_SIZE" envDefault:"1000"`
	StaleAfter  time.Duration `env:"RESOLVER_STALE_AFTER" envDefault:"60s"`
	NegativeTTL time.Duration `env:"RESOLVER_NEGATIVE_TTL" envDefault:"30s"`
}

// ResolvedConfig is the cached deployment configuration for one host.
// Owned by the resolver; replaced wholesale on refresh, never mutated.
type ResolvedConfig struct {
	Manifest     manifest.Manifest
	DeploymentID string
	ProjectID    string
	FetchedAt    time.Time
}

// MetadataClient is the upstream lookup consumed by the resolver.
type MetadataClient interface {
	ResolveDomain(ctx context.Context, domain string) (*metadata.ResolveResponse, error)
}

// Resolver is a bounded, single-flight host→config cache.
// Safe for concurrent use.
type Resolver struct {
	client      MetadataClient
	log         *slog.Logger
	capacity    int
	staleAfter  time.Duration
	negativeTTL time.Duration
	now         func() time.Time

	mu       sync.Mutex
	entries  map[string]*list.Element // host -> *cacheEntry element
	lru      *list.List               // front = most recently used
	inflight map[string]*call
	negative map[string]time.Time // host -> expiry of the NotFound result
}

type cacheEntry struct {
	host string
	cfg  *ResolvedConfig
}

// call is one in-flight upstream fetch shared by all waiters for a host.
type call struct {
	done chan struct{}
	cfg  *ResolvedConfig
	err  error
}

// Option configures the resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for background refresh outcomes.
func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// New creates a resolver over the given metadata client.
func New(client MetadataClient, cfg Config, opts ...Option) *Resolver {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1000
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = time.Minute
	}
	if cfg.NegativeTTL <= 0 {
		cfg.NegativeTTL = 30 * time.Second
	}

	r := &Resolver{
		client:      client,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		capacity:    cfg.CacheSize,
		staleAfter:  cfg.StaleAfter,
		negativeTTL: cfg.NegativeTTL,
		now:         time.Now,
		entries:     make(map[string]*list.Element),
		lru:         list.New(),
		inflight:    make(map[string]*call),
		negative:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the deployment configuration for host.
// Returns ErrHostNotFound for unregistered hosts and ErrUpstreamUnavailable
// when the metadata service cannot be reached on a cache miss.
func (r *Resolver) Resolve(ctx context.Context, host string) (*ResolvedConfig, error) {
	host = NormalizeHost(host)
	if host == "" {
		return nil, ErrHostNotFound
	}

	r.mu.Lock()

	if el, ok := r.entries[host]; ok {
		r.lru.MoveToFront(el)
		cfg := el.Value.(*cacheEntry).cfg

		// Allow-stale: serve the cached value and revalidate off the hot
		// path, reusing the single-flight slot so only one refresh runs.
		if r.now().Sub(cfg.FetchedAt) > r.staleAfter {
			if _, busy := r.inflight[host]; !busy {
				c := &call{done: make(chan struct{})}
				r.inflight[host] = c
				go r.refresh(host, c)
			}
		}

		r.mu.Unlock()
		return cfg, nil
	}

	if until, ok := r.negative[host]; ok {
		if r.now().Before(until) {
			r.mu.Unlock()
			return nil, ErrHostNotFound
		}
		delete(r.negative, host)
	}

	if c, ok := r.inflight[host]; ok {
		r.mu.Unlock()
		select {
		case <-c.done:
			return c.cfg, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &call{done: make(chan struct{})}
	r.inflight[host] = c
	r.mu.Unlock()

	r.fetch(ctx, host, c)
	return c.cfg, c.err
}

// Invalidate drops any cached entry for host, forcing the next resolution
// to hit the metadata service.
func (r *Resolver) Invalidate(host string) {
	host = NormalizeHost(host)

	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.entries[host]; ok {
		r.lru.Remove(el)
		delete(r.entries, host)
	}
	delete(r.negative, host)
}

// fetch performs the upstream lookup, publishes the result to all waiters,
// and updates the cache. Failures to reach the upstream are never cached.
func (r *Resolver) fetch(ctx context.Context, host string, c *call) {
	res, err := r.client.ResolveDomain(ctx, host)

	r.mu.Lock()
	defer func() {
		delete(r.inflight, host)
		r.mu.Unlock()
		close(c.done)
	}()

	switch {
	case err == nil:
		c.cfg = &ResolvedConfig{
			Manifest:     res.Manifest,
			DeploymentID: res.DeploymentID,
			ProjectID:    res.ProjectID,
			FetchedAt:    r.now(),
		}
		r.store(host, c.cfg)

	case errors.Is(err, metadata.ErrDomainNotRegistered):
		c.err = ErrHostNotFound
		r.negative[host] = r.now().Add(r.negativeTTL)

	default:
		c.err = errors.Join(ErrUpstreamUnavailable, err)
	}
}

// refresh revalidates a stale entry with a detached context so a slow
// upstream never stalls the request that triggered it. The stale value
// stays served if the refresh fails.
func (r *Resolver) refresh(host string, c *call) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := r.client.ResolveDomain(ctx, host)

	r.mu.Lock()
	defer func() {
		delete(r.inflight, host)
		r.mu.Unlock()
		close(c.done)
	}()

	switch {
	case err == nil:
		c.cfg = &ResolvedConfig{
			Manifest:     res.Manifest,
			DeploymentID: res.DeploymentID,
			ProjectID:    res.ProjectID,
			FetchedAt:    r.now(),
		}
		r.store(host, c.cfg)

	case errors.Is(err, metadata.ErrDomainNotRegistered):
		// The domain was detached upstream: drop it instead of serving a
		// dead deployment forever.
		c.err = ErrHostNotFound
		if el, ok := r.entries[host]; ok {
			r.lru.Remove(el)
			delete(r.entries, host)
		}
		r.negative[host] = r.now().Add(r.negativeTTL)

	default:
		c.err = errors.Join(ErrUpstreamUnavailable, err)
		r.log.Warn("stale entry kept, background refresh failed",
			logger.Component("resolver"), logger.Host(host), logger.Error(err))
	}
}

// store inserts or replaces the entry for host, evicting the least
// recently used entry when over capacity. Caller holds r.mu.
func (r *Resolver) store(host string, cfg *ResolvedConfig) {
	if el, ok := r.entries[host]; ok {
		el.Value.(*cacheEntry).cfg = cfg
		r.lru.MoveToFront(el)
		return
	}

	r.entries[host] = r.lru.PushFront(&cacheEntry{host: host, cfg: cfg})

	for r.lru.Len() > r.capacity {
		oldest := r.lru.Back()
		if oldest == nil {
			break
		}
		r.lru.Remove(oldest)
		delete(r.entries, oldest.Value.(*cacheEntry).host)
	}
}

// NormalizeHost lowercases a host header and strips any port.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}
