package hub

import (
	"context"
	"flag"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	server "github.com/louisbranch/fieldschool/internal/services/hub/app"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("hub", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/hub-cache.db" {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, "data/hub-cache.db")
	}
	if cfg.StoreBackend != "sqlite" {
		t.Fatalf("store backend = %q, want %q", cfg.StoreBackend, "sqlite")
	}
	if cfg.Language != "en" {
		t.Fatalf("language = %q, want %q", cfg.Language, "en")
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Fatalf("refresh interval = %v, want 30s", cfg.RefreshInterval)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("request timeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.Port != 0 || cfg.Once || cfg.Fenced || cfg.Probe || cfg.ProbeWait != 0 {
		t.Fatalf("cfg = %+v, want zero port and flags off", cfg)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("FIELDSCHOOL_HUB_BACKEND_URL", "https://env.example.com")
	t.Setenv("FIELDSCHOOL_HUB_LANGUAGE", "sw")
	t.Setenv("FIELDSCHOOL_HUB_REFRESH_INTERVAL", "1m")

	fs := flag.NewFlagSet("hub", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-lang", "pt-BR", "-store", "bbolt", "-once", "-port", "9090"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.BackendURL != "https://env.example.com" {
		t.Fatalf("backend url = %q, want env value", cfg.BackendURL)
	}
	if cfg.Language != "pt-BR" {
		t.Fatalf("language = %q, want flag value", cfg.Language)
	}
	if cfg.RefreshInterval != time.Minute {
		t.Fatalf("refresh interval = %v, want 1m", cfg.RefreshInterval)
	}
	if cfg.StoreBackend != "bbolt" || !cfg.Once || cfg.Port != 9090 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("FIELDSCHOOL_HUB_PORT", "not-a-number")
	fs := flag.NewFlagSet("hub", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestProbeRequiresPort(t *testing.T) {
	err := Run(context.Background(), Config{Probe: true})
	if err == nil || !strings.Contains(err.Error(), "requires a port") {
		t.Fatalf("error = %v, want port error", err)
	}
}

func startHealth(t *testing.T) (*server.HealthServer, int) {
	t.Helper()
	srv, err := server.NewHealthServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new health server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	_, portText, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return srv, port
}

func TestProbeReportsNotServing(t *testing.T) {
	_, port := startHealth(t)
	err := Run(context.Background(), Config{Probe: true, Port: port})
	if err == nil || !strings.Contains(err.Error(), "NOT_SERVING") {
		t.Fatalf("error = %v, want NOT_SERVING", err)
	}
}

func TestProbeWaitsForServing(t *testing.T) {
	srv, port := startHealth(t)
	go func() {
		time.Sleep(100 * time.Millisecond)
		srv.SetOffline(false)
	}()
	if err := Run(context.Background(), Config{Probe: true, Port: port, ProbeWait: 5 * time.Second}); err != nil {
		t.Fatalf("probe: %v", err)
	}
}

func TestProbeWaitGivesUp(t *testing.T) {
	_, port := startHealth(t)
	err := Run(context.Background(), Config{Probe: true, Port: port, ProbeWait: 200 * time.Millisecond})
	if err == nil {
		t.Fatal("expected error while dashboard stays offline")
	}
}
