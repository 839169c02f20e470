package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func startServer(t *testing.T) (*Server, healthpb.HealthClient) {
	t.Helper()
	s, err := NewServer(&ServerConfig{Address: "127.0.0.1:0", MaxRecvMsgSize: 1024})
	require.NoError(t, err)
	require.NoError(t, s.StartAsync())
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient(s.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return s, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthReflectsConsistency(t *testing.T) {
	s, client := startServer(t)
	assert.True(t, s.IsRunning())

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ReplayService))

	s.SetConsistent(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ReplayService))

	s.SetConsistent(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ReplayService))
}

func TestStartTwice(t *testing.T) {
	s, _ := startServer(t)
	assert.Error(t, s.StartAsync())
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		ok   bool
	}{
		{"default", *DefaultServerConfig(), true},
		{"any host", ServerConfig{Address: ":50051", MaxRecvMsgSize: 1}, true},
		{"empty", ServerConfig{MaxRecvMsgSize: 1}, false},
		{"no port", ServerConfig{Address: "localhost", MaxRecvMsgSize: 1}, false},
		{"zero size", ServerConfig{Address: "127.0.0.1:1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
