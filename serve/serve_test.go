package serve

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

// setupHealthTestServer starts a Server on an in-memory listener and returns a
// health client connected to it.
func setupHealthTestServer(t *testing.T) (*Server, grpc_health_v1.HealthClient, context.CancelFunc, <-chan error) {
	t.Helper()

	const bufSize = 1024 * 1024
	lis := bufconn.Listen(bufSize)

	srv, err := NewServer(WithListener(lis), WithGracefulShutdown(time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		lis.Close()
	})

	return srv, grpc_health_v1.NewHealthClient(conn), cancel, done
}

func checkStatus(t *testing.T, client grpc_health_v1.HealthClient, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestServerHealth(t *testing.T) {
	srv, client, _, _ := setupHealthTestServer(t)

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, checkStatus(t, client, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, checkStatus(t, client, ServiceName),
		"worker service is not serving until a worker runs")

	srv.HealthServer().SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, checkStatus(t, client, ServiceName))
}

func TestServerServeStopsOnCancel(t *testing.T) {
	_, client, cancel, done := setupHealthTestServer(t)

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, checkStatus(t, client, ""))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestNewServerDefaults(t *testing.T) {
	srv, err := NewServer(WithPort(0))
	require.NoError(t, err)
	defer srv.Stop()

	assert.NotZero(t, srv.Port())
	assert.Equal(t, 30*time.Second, srv.config.GracefulTimeout)
	assert.NotNil(t, srv.GRPCServer())
}

func TestNewServerBadTLS(t *testing.T) {
	_, err := NewServer(WithPort(0), WithTLS("/nonexistent/cert.pem", "/nonexistent/key.pem"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load TLS credentials")
}
