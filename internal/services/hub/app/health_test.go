package server

import (
	"context"
	"testing"
	"time"

	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	platformgrpc "github.com/louisbranch/fieldschool/internal/platform/grpc"
)

func startTestHealthServer(t *testing.T) *HealthServer {
	t.Helper()
	srv, err := NewHealthServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new health server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-serveDone:
			if err != nil {
				t.Fatalf("serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for health server shutdown")
		}
	})
	return srv
}

func TestHealthServerTracksOffline(t *testing.T) {
	srv := startTestHealthServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := platformgrpc.CheckHealth(ctx, srv.Addr(), DashboardHealthService)
	if err != nil {
		t.Fatalf("check health: %v", err)
	}
	if status != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("initial status = %s, want NOT_SERVING", status)
	}

	srv.SetOffline(false)
	status, err = platformgrpc.CheckHealth(ctx, srv.Addr(), DashboardHealthService)
	if err != nil {
		t.Fatalf("check health: %v", err)
	}
	if status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("status = %s, want SERVING", status)
	}

	srv.SetOffline(true)
	status, err = platformgrpc.CheckHealth(ctx, srv.Addr(), DashboardHealthService)
	if err != nil {
		t.Fatalf("check health: %v", err)
	}
	if status != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %s, want NOT_SERVING", status)
	}
}

func TestHealthServerNilSafe(t *testing.T) {
	var srv *HealthServer
	srv.SetOffline(true)
	srv.Close()
	if srv.Addr() != "" {
		t.Fatal("expected empty addr for nil server")
	}
}
