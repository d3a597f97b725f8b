package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"social-service/internal/logger"
)

func dialBufconn(t *testing.T, s *GRPCServer) healthpb.HealthClient {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	go func() { _ = s.Server().Serve(listener) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return healthpb.NewHealthClient(conn)
}

func TestGRPCHealthReflectsChecks(t *testing.T) {
	var storeErr error
	s := NewGRPCServer(map[string]Check{
		"mongo": func(ctx context.Context) error { return storeErr },
		"redis": func(ctx context.Context) error { return nil },
	}, logger.Discard())
	client := dialBufconn(t, s)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.True(t, s.Refresh(ctx))
	res, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, res.Status)

	storeErr = errors.New("no primary")
	require.False(t, s.Refresh(ctx))

	res, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ""})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, res.Status)

	res, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "redis"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, res.Status)
}

func TestMonitorStopsWithContext(t *testing.T) {
	calls := make(chan struct{}, 10)
	s := NewGRPCServer(map[string]Check{
		"mongo": func(ctx context.Context) error {
			select {
			case calls <- struct{}{}:
			default:
			}
			return nil
		},
	}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Monitor(ctx, 10*time.Millisecond)
		close(done)
	}()

	<-calls
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestHTTPServerShutdown(t *testing.T) {
	s := NewHTTPServer("0", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), logger.Discard())

	errs := make(chan error, 1)
	go func() { errs <- s.Serve() }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-errs)
}
