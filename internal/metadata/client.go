// Package metadata is the client for the deployment-metadata service that
// maps inbound domains to deployment manifests.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/origan-dev/gateway/internal/manifest"
)

// Config holds connection settings for the deployment-metadata service.
type Config struct {
	BaseURL string        `env:"CONTROL_PLANE_URL,required"`
	Timeout time.Duration `env:"CONTROL_PLANE_TIMEOUT" envDefault:"5s"`
}

// ResolveResponse is the deployment configuration for one domain.
type ResolveResponse struct {
	Manifest     manifest.Manifest `json:"manifest"`
	DeploymentID string            `json:"deploymentId"`
	ProjectID    string            `json:"projectId"`
}

type resolveRequest struct {
	Domain string `json:"domain"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client calls the deployment-metadata service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a metadata client from config.
func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ResolveDomain looks up the deployment configuration for domain.
// Unregistered domains return ErrDomainNotRegistered; transport and
// server-side failures return errors wrapping ErrUnavailable.
func (c *Client) ResolveDomain(ctx context.Context, domain string) (*ResolveResponse, error) {
	body, err := json.Marshal(resolveRequest{Domain: domain})
	if err != nil {
		return nil, fmt.Errorf("encode resolve request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/resolve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build resolve request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		var out ResolveResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if out.DeploymentID == "" {
			return nil, fmt.Errorf("%w: missing deploymentId", ErrMalformedResponse)
		}
		return &out, nil

	case resp.StatusCode == http.StatusNotFound:
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrDomainNotRegistered, e.Error)
		}
		return nil, ErrDomainNotRegistered

	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)

	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrMalformedResponse, resp.StatusCode)
	}
}
