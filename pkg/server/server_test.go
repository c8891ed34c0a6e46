package server_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/agentdesk/internal/config"
	"github.com/agentoven/agentdesk/pkg/server"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.Host = "127.0.0.1"
	cfg.APIKeys = ""
	cfg.Workspace.Root = t.TempDir()
	cfg.Providers.CatalogFile = ""
	cfg.Providers.SeedFromEnv = false
	cfg.Telemetry.Enabled = false
	cfg.Tools.GuardLevel = "standard"
	cfg.Tools.MCPServers = ""
	return cfg
}

func TestNewRefusesOpenNetworkWithoutKeys(t *testing.T) {
	for _, host := range []string{"", "0.0.0.0", "10.0.0.5"} {
		cfg := testConfig(t)
		cfg.Host = host
		_, err := server.NewWithConfig(context.Background(), cfg)
		assert.ErrorIs(t, err, config.ErrExposedWithoutKeys, "host %q", host)
	}
}

func TestNewAllowsOpenNetworkWithKeys(t *testing.T) {
	cfg := testConfig(t)
	cfg.Host = "0.0.0.0"
	cfg.APIKeys = "k1"

	srv, err := server.NewWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestServeUntilContextDone(t *testing.T) {
	srv, err := server.NewWithConfig(context.Background(), testConfig(t))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")

	// Cross-origin requests from arbitrary sites get no CORS grant.
	req, _ := http.NewRequest(http.MethodOptions, "http://"+ln.Addr().String()+"/api/v1/tools", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://localhost:5173")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
