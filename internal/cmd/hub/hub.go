// Package hub parses dashboard hub flags and launches the hub runtime.
package hub

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	entrypoint "github.com/louisbranch/fieldschool/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/fieldschool/internal/platform/grpc"
	"github.com/louisbranch/fieldschool/internal/platform/timeouts"
	server "github.com/louisbranch/fieldschool/internal/services/hub/app"
	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Config holds hub command configuration.
type Config struct {
	DBPath          string        `env:"HUB_DB_PATH" envDefault:"data/hub-cache.db"`
	StoreBackend    string        `env:"HUB_STORE_BACKEND" envDefault:"sqlite"`
	BackendURL      string        `env:"HUB_BACKEND_URL"`
	BackendKey      string        `env:"HUB_BACKEND_KEY"`
	AccessToken     string        `env:"HUB_ACCESS_TOKEN"`
	UserID          string        `env:"HUB_USER_ID"`
	Language        string        `env:"HUB_LANGUAGE" envDefault:"en"`
	Port            int           `env:"HUB_PORT" envDefault:"0"`
	RefreshInterval time.Duration `env:"HUB_REFRESH_INTERVAL" envDefault:"30s"`
	RequestTimeout  time.Duration `env:"HUB_REQUEST_TIMEOUT" envDefault:"10s"`
	Fenced          bool          `env:"HUB_FENCED"`
	Once            bool          `env:"HUB_ONCE"`
	// Probe checks a running hub's dashboard health on Port and exits.
	Probe bool `env:"HUB_PROBE"`
	// ProbeWait keeps probing until SERVING for up to this long. Zero checks once.
	ProbeWait time.Duration `env:"HUB_PROBE_WAIT" envDefault:"0s"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the cache database file")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "Cache store backend: sqlite, bbolt or memory")
	fs.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "Base URL of the managed backend")
	fs.StringVar(&cfg.BackendKey, "backend-key", cfg.BackendKey, "Project API key sent to the backend")
	fs.StringVar(&cfg.AccessToken, "access-token", cfg.AccessToken, "Access token issued by the one-time password login")
	fs.StringVar(&cfg.UserID, "user-id", cfg.UserID, "User id, overriding the access token subject")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "Content language")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "gRPC health port (0 disables)")
	fs.DurationVar(&cfg.RefreshInterval, "refresh", cfg.RefreshInterval, "Dashboard refresh interval")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Timeout for each backend request")
	fs.BoolVar(&cfg.Fenced, "fenced", cfg.Fenced, "Discard results from superseded fetches")
	fs.BoolVar(&cfg.Once, "once", cfg.Once, "Print the dashboard as JSON and exit")
	fs.BoolVar(&cfg.Probe, "probe", cfg.Probe, "Check a running hub's health and exit")
	fs.DurationVar(&cfg.ProbeWait, "probe-wait", cfg.ProbeWait, "How long -probe waits for SERVING (0 checks once)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the dashboard hub.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Probe {
		return probe(ctx, cfg.Port, cfg.ProbeWait)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceHub, func(ctx context.Context) error {
		return server.Run(ctx, server.RuntimeConfig{
			DBPath:          cfg.DBPath,
			StoreBackend:    cfg.StoreBackend,
			BackendURL:      cfg.BackendURL,
			BackendKey:      cfg.BackendKey,
			AccessToken:     cfg.AccessToken,
			UserID:          cfg.UserID,
			Language:        cfg.Language,
			Port:            cfg.Port,
			RefreshInterval: cfg.RefreshInterval,
			RequestTimeout:  cfg.RequestTimeout,
			Fenced:          cfg.Fenced,
			Once:            cfg.Once,
		})
	})
}

func probe(ctx context.Context, port int, wait time.Duration) error {
	if port <= 0 {
		return fmt.Errorf("probe requires a port")
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	if wait > 0 {
		return waitForServing(ctx, addr, wait)
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Shutdown)
	defer cancel()
	status, err := platformgrpc.CheckHealth(ctx, addr, server.DashboardHealthService)
	if err != nil {
		return err
	}
	if status != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("%s is %s", server.DashboardHealthService, status)
	}
	return nil
}

func waitForServing(ctx context.Context, addr string, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	conn, err := gogrpc.NewClient(addr, platformgrpc.ClientDialOptions()...)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() {
		_ = conn.Close()
	}()
	return platformgrpc.WaitForStatus(ctx, conn, server.DashboardHealthService, grpc_health_v1.HealthCheckResponse_SERVING, log.Printf)
}
