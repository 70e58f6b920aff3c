package metadata_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origan-dev/gateway/internal/metadata"
)

func TestNewRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := metadata.New(metadata.Config{BaseURL: "  "})
	assert.ErrorIs(t, err, metadata.ErrMissingBaseURL)
}

func TestResolveDomainSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/resolve", r.URL.Path)

		var req struct {
			Domain string `json:"domain"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "site.example.com", req.Domain)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"deploymentId": "deploy-1",
			"projectId": "proj-1",
			"manifest": {
				"version": 1,
				"staticPaths": ["/index.html"],
				"routes": [{"urlPattern": "/api/*", "targetPath": "functions/api.js", "kind": "wildcard"}]
			}
		}`))
	}))
	defer srv.Close()

	client, err := metadata.New(metadata.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := client.ResolveDomain(context.Background(), "site.example.com")
	require.NoError(t, err)
	assert.Equal(t, "deploy-1", res.DeploymentID)
	assert.Equal(t, "proj-1", res.ProjectID)
	assert.True(t, res.Manifest.HasStaticPath("/index.html"))
	require.Len(t, res.Manifest.Routes, 1)
	assert.Equal(t, "functions/api.js", res.Manifest.Routes[0].TargetPath)
}

func TestResolveDomainNotRegistered(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "domain not registered"}`))
	}))
	defer srv.Close()

	client, err := metadata.New(metadata.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.ResolveDomain(context.Background(), "nope.example.com")
	assert.ErrorIs(t, err, metadata.ErrDomainNotRegistered)
}

func TestResolveDomainServerErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := metadata.New(metadata.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.ResolveDomain(context.Background(), "site.example.com")
	assert.ErrorIs(t, err, metadata.ErrUnavailable)
}

func TestResolveDomainTransportErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := metadata.New(metadata.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.ResolveDomain(context.Background(), "site.example.com")
	assert.ErrorIs(t, err, metadata.ErrUnavailable)
}

func TestResolveDomainMalformedResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing deploymentId", `{"projectId": "proj-1", "manifest": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := metadata.New(metadata.Config{BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = client.ResolveDomain(context.Background(), "site.example.com")
			assert.ErrorIs(t, err, metadata.ErrMalformedResponse)
		})
	}
}
