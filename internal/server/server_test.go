package server_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origan-dev/gateway/internal/server"
)

func testHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "OK")
	})
}

func getFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()
	return port
}

func TestServerServesRequests(t *testing.T) {
	t.Parallel()

	port := getFreePort(t)
	srv := server.New(fmt.Sprintf(":%d", port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = srv.Start(ctx, testHandler())
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://localhost:%d/", port))
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	wg.Wait()
	assert.ErrorIs(t, runErr, context.Canceled)
	assert.NoError(t, srv.Stop())
}

func TestServerDoubleStart(t *testing.T) {
	t.Parallel()

	port := getFreePort(t)
	srv := server.New(fmt.Sprintf(":%d", port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = srv.Start(ctx, testHandler())
	}()

	time.Sleep(50 * time.Millisecond)

	err := srv.Start(context.Background(), testHandler())
	assert.ErrorIs(t, err, server.ErrServerAlreadyRunning)

	cancel()
	wg.Wait()
}

func TestServerPortConflict(t *testing.T) {
	t.Parallel()

	port := getFreePort(t)
	addr := fmt.Sprintf(":%d", port)

	srv1 := server.New(addr)
	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = srv1.Start(ctx1, testHandler())
	}()

	time.Sleep(50 * time.Millisecond)

	srv2 := server.New(addr)
	err := srv2.Start(context.Background(), testHandler())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")

	cancel1()
	wg.Wait()
}

func TestServerStopWithoutStart(t *testing.T) {
	t.Parallel()

	srv := server.New(":0")
	assert.NoError(t, srv.Stop())
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("requires address", func(t *testing.T) {
		t.Parallel()

		_, err := server.NewFromConfig(server.Config{})
		assert.ErrorIs(t, err, server.ErrMissingAddress)
	})

	t.Run("builds server", func(t *testing.T) {
		t.Parallel()

		srv, err := server.NewFromConfig(server.Config{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 5 * time.Second,
		})
		require.NoError(t, err)
		assert.NotNil(t, srv)
	})
}

func TestIntermediateTLSConfig(t *testing.T) {
	t.Parallel()

	cfg := server.IntermediateTLSConfig()
	assert.EqualValues(t, 0x0303, cfg.MinVersion, "TLS 1.2 minimum")
	assert.NotEmpty(t, cfg.CipherSuites)
}
