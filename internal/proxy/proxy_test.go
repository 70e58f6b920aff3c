package proxy_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origan-dev/gateway/internal/proxy"
)

func TestNewRejectsInvalidRuntimeURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not a url", "/relative/only"} {
		_, err := proxy.New(proxy.Config{RuntimeURL: raw})
		assert.ErrorIs(t, err, proxy.ErrInvalidRuntimeURL, raw)
	}
}

func TestForwardSetsFunctionPathAndForwardingHeaders(t *testing.T) {
	t.Parallel()

	var got *http.Request
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	defer runtime.Close()

	p, err := proxy.New(proxy.Config{RuntimeURL: runtime.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "http://site.example.com/api/users/42?limit=10", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	p.Forward(w, req, "functions/user.js")

	require.NotNil(t, got)
	assert.Equal(t, "/api/users/42", got.URL.Path, "request path passes through unchanged")
	assert.Equal(t, "limit=10", got.URL.RawQuery)
	assert.Equal(t, "functions/user.js", got.Header.Get("X-Origan-Function-Path"))
	assert.Equal(t, "site.example.com", got.Header.Get("X-Forwarded-Host"))
	assert.Equal(t, "203.0.113.9", got.Header.Get("X-Forwarded-For"))
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
}

func TestForwardStripsHopByHopHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer runtime.Close()

	p, err := proxy.New(proxy.Config{RuntimeURL: runtime.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/fn", nil)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Keep-Alive", "timeout=5")
	req.Header.Set("Proxy-Authorization", "secret")
	req.Header.Set("X-Api-Key", "kept")
	w := httptest.NewRecorder()

	p.Forward(w, req, "functions/fn.js")

	require.NotNil(t, got)
	assert.Empty(t, got.Get("Keep-Alive"))
	assert.Empty(t, got.Get("Proxy-Authorization"))
	assert.Equal(t, "kept", got.Get("X-Api-Key"))
}

func TestForwardRelaysBodyAndResponseVerbatim(t *testing.T) {
	t.Parallel()

	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Function-Version", "7")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write(body)
	}))
	defer runtime.Close()

	p, err := proxy.New(proxy.Config{RuntimeURL: runtime.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/fn", strings.NewReader(`{"k":"v"}`))
	w := httptest.NewRecorder()

	p.Forward(w, req, "functions/fn.js")

	// Non-2xx responses from user functions are not gateway errors.
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "7", w.Header().Get("X-Function-Version"))
	assert.Equal(t, `{"k":"v"}`, w.Body.String())
}

func TestForwardUnreachableRuntimeIs502(t *testing.T) {
	t.Parallel()

	// Closed immediately so the connection is refused.
	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	runtime.Close()

	p, err := proxy.New(proxy.Config{RuntimeURL: runtime.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/fn", nil)
	w := httptest.NewRecorder()

	p.Forward(w, req, "functions/fn.js")

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestForwardTimeoutIs504(t *testing.T) {
	t.Parallel()

	runtime := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer runtime.Close()

	p, err := proxy.New(proxy.Config{RuntimeURL: runtime.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/fn", nil)
	w := httptest.NewRecorder()

	p.Forward(w, req, "functions/fn.js")

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}
