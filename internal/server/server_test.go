package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	usergrpc "github.com/GriffinCanCode/usertrace/internal/grpc/user"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/config"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/logging"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Store.Kind = "memory"
	cfg.Tracing.Exporter = "none"
	cfg.Logging.Development = true
	return cfg
}

func startServer(t *testing.T, cfg *config.Config) (*Server, string, string) {
	t.Helper()

	srv, err := New(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)

	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	adminLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, grpcLis, adminLis) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		assert.NoError(t, srv.Close(closeCtx))
	})

	return srv, grpcLis.Addr().String(), adminLis.Addr().String()
}

func TestServerServesSeededUsers(t *testing.T) {
	_, grpcAddr, _ := startServer(t, testConfig())

	client, err := usergrpc.NewClient(grpcAddr, usergrpc.ClientOptions{CallTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	number, err := client.GetUserData(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "5551230000", number)

	isNew, err := client.GetOrCreateUser(ctx, 2, "0000000000")
	require.NoError(t, err)
	assert.False(t, isNew, "seeded users already exist")

	isNew, err = client.GetOrCreateUser(ctx, 11, "9876543210")
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestAdminEndpoints(t *testing.T) {
	_, grpcAddr, adminAddr := startServer(t, testConfig())

	client, err := usergrpc.NewClient(grpcAddr, usergrpc.ClientOptions{})
	require.NoError(t, err)
	defer client.Close()
	_, err = client.GetUserData(context.Background(), 5)
	require.NoError(t, err)

	resp, err := http.Get("http://" + adminAddr + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Checks["store"])

	resp, err = http.Get("http://" + adminAddr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `usertrace_grpc_calls_total{code="OK",method="/usertrace.UserService/GetUserData",side="server"} 1`)
	assert.Contains(t, string(body), `usertrace_store_operations_total{operation="lookup",result="NOT_FOUND"} 1`)
	assert.Contains(t, string(body), "usertrace_spans_exported_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRateLimitedServer(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 1
	_, grpcAddr, _ := startServer(t, cfg)

	client, err := usergrpc.NewClient(grpcAddr, usergrpc.ClientOptions{})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.GetUserData(context.Background(), 2)
	require.NoError(t, err)

	_, err = client.GetUserData(context.Background(), 2)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "unknown store", mutate: func(c *config.Config) { c.Store.Kind = "mongo" }},
		{name: "unknown exporter", mutate: func(c *config.Config) { c.Tracing.Exporter = "zipkin" }},
		{name: "bad seed", mutate: func(c *config.Config) { c.Store.Seed = "two=5551230000" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			_, err := New(context.Background(), cfg, logging.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestSQLiteStoreSurvivesRestart(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Kind = "sqlite"
	cfg.Store.DSN = "file:" + t.TempDir() + "/users.db?_busy_timeout=5000"
	cfg.Store.Seed = ""

	create := func() bool {
		srv, err := New(context.Background(), cfg, logging.NewNop())
		require.NoError(t, err)
		defer srv.Close(context.Background())

		isNew, err := srv.store.GetOrCreate(context.Background(), 7, "5557770000")
		require.NoError(t, err)
		return isNew
	}

	assert.True(t, create())
	assert.False(t, create())
}

func TestCloseIsIdempotent(t *testing.T) {
	srv, err := New(context.Background(), testConfig(), logging.NewNop())
	require.NoError(t, err)

	require.NoError(t, srv.Close(context.Background()))
	require.NoError(t, srv.Close(context.Background()))
}
