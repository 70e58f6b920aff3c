// Package proxy forwards dynamic requests to the function execution
// runtime.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/origan-dev/gateway/internal/logger"
)

// FunctionPathHeader identifies the physical bundle path of the target
// function so the runtime can load the correct code without re-resolving.
const FunctionPathHeader = "X-Origan-Function-Path"

// hopByHopHeaders are connection-level headers that must not be forwarded.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Config holds connection settings for the execution runtime.
type Config struct {
	RuntimeURL string        `env:"RUNTIME_URL,required"`
	Timeout    time.Duration `env:"RUNTIME_TIMEOUT" envDefault:"30s"`
}

// Proxy rebuilds inbound requests against the runtime base URL.
type Proxy struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures the proxy.
type Option func(*Proxy)

// WithLogger sets the logger for upstream failures.
func WithLogger(log *slog.Logger) Option {
	return func(p *Proxy) {
		p.log = log
	}
}

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Proxy) {
		p.httpClient = hc
	}
}

// New creates a proxy targeting the runtime at cfg.RuntimeURL.
func New(cfg Config, opts ...Option) (*Proxy, error) {
	base, err := url.Parse(strings.TrimRight(cfg.RuntimeURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, ErrInvalidRuntimeURL
	}

	p := &Proxy{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Forward sends the request to the runtime and relays the response.
// Upstream status codes and headers pass through verbatim, including
// non-2xx. A timeout yields 504, any other transport failure 502; the
// proxy never retries, so user functions see at most one invocation.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, functionPath string) {
	target := *p.baseURL
	target.Path = singleJoin(p.baseURL.Path, r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	// Function payloads are bounded, so buffering the body is acceptable
	// and keeps retries-by-the-transport impossible mid-stream.
	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Body != nil {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		body = bytes.NewReader(data)
	}

	upstream, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), body)
	if err != nil {
		http.Error(w, "failed to build upstream request", http.StatusInternalServerError)
		return
	}

	copyHeaders(upstream.Header, r.Header)
	upstream.Header.Set(FunctionPathHeader, functionPath)
	upstream.Header.Set("X-Forwarded-Host", r.Host)
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		upstream.Header.Add("X-Forwarded-For", ip)
	}

	resp, err := p.httpClient.Do(upstream)
	if err != nil {
		status := http.StatusBadGateway
		msg := "execution runtime unreachable"
		if isTimeout(err) {
			status = http.StatusGatewayTimeout
			msg = "execution runtime timed out"
		}
		p.log.Error("function invocation failed",
			logger.Component("proxy"),
			logger.Path(r.URL.Path),
			slog.String("function", functionPath),
			logger.Error(err))
		http.Error(w, msg, status)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		if isHopByHop(key) {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

func isHopByHop(key string) bool {
	for _, h := range hopByHopHeaders {
		if http.CanonicalHeaderKey(key) == http.CanonicalHeaderKey(h) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// net/http wraps client timeouts in a *url.Error with Timeout set.
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

func singleJoin(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	return base + "/" + strings.TrimPrefix(path, "/")
}
