package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/fieldschool/internal/platform/timeouts"
	"github.com/louisbranch/fieldschool/internal/services/hub/backend"
	"github.com/louisbranch/fieldschool/internal/services/hub/session"
	"github.com/louisbranch/fieldschool/internal/storage"
	storagebbolt "github.com/louisbranch/fieldschool/internal/storage/bbolt"
	"github.com/louisbranch/fieldschool/internal/storage/memory"
	storagesqlite "github.com/louisbranch/fieldschool/internal/storage/sqlite"
)

// Store backends accepted by RuntimeConfig.StoreBackend.
const (
	StoreBackendSQLite = "sqlite"
	StoreBackendBbolt  = "bbolt"
	StoreBackendMemory = "memory"
)

const defaultRefreshInterval = 30 * time.Second

// RuntimeConfig controls one hub process.
type RuntimeConfig struct {
	DBPath       string
	StoreBackend string

	BackendURL  string
	BackendKey  string
	AccessToken string
	// UserID overrides the access token subject.
	UserID   string
	Language string

	// Port serves gRPC health when positive.
	Port            int
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	Fenced          bool
	// Once prints the loaded dashboard and exits.
	Once bool

	// Output receives the printed dashboard. Defaults to os.Stdout.
	Output io.Writer
	// HTTPClient overrides the backend transport.
	HTTPClient *http.Client
	// Now overrides the clock used for token expiry checks.
	Now func() time.Time
}

// Run loads the dashboard and then prints it or keeps it fresh until ctx
// ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = normalizeRuntimeConfig(cfg)

	userID, err := resolveUserID(cfg)
	if err != nil {
		return err
	}

	client, err := backend.NewClient(backend.Config{
		BaseURL:     cfg.BackendURL,
		APIKey:      cfg.BackendKey,
		AccessToken: cfg.AccessToken,
		Timeout:     cfg.RequestTimeout,
		HTTPClient:  cfg.HTTPClient,
	})
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}

	store, err := openStore(cfg.StoreBackend, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close cache store: %v", err)
		}
	}()

	dashboard, err := NewDashboard(DashboardConfig{
		Store:          storage.KeyValue(store),
		Backend:        client,
		UserID:         userID,
		Language:       cfg.Language,
		RequestTimeout: cfg.RequestTimeout,
		Fenced:         cfg.Fenced,
	})
	if err != nil {
		return err
	}
	defer dashboard.Close()

	if err := dashboard.Load(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("load dashboard: %w", err)
	}
	if cfg.Once {
		return writeView(cfg.Output, dashboard.View())
	}

	var healthServer *HealthServer
	serveErr := make(chan error, 1)
	if cfg.Port > 0 {
		healthServer, err = NewHealthServer(fmt.Sprintf(":%d", cfg.Port))
		if err != nil {
			return err
		}
		defer healthServer.Close()
		go func() {
			serveErr <- healthServer.Serve(ctx)
		}()
	}

	offline := reportView(healthServer, dashboard.View(), nil)
	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if healthServer != nil {
				return <-serveErr
			}
			return nil
		case err := <-serveErr:
			return err
		case <-ticker.C:
			if err := dashboard.Refresh(ctx); err != nil {
				continue
			}
			offline = reportView(healthServer, dashboard.View(), &offline)
		}
	}
}

func normalizeRuntimeConfig(cfg RuntimeConfig) RuntimeConfig {
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreBackendSQLite
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "hub-cache.db")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = timeouts.BackendRequest
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

// resolveUserID prefers an explicit user id and otherwise reads the token
// subject. Expired tokens are still used so cached data stays reachable.
func resolveUserID(cfg RuntimeConfig) (string, error) {
	if userID := strings.TrimSpace(cfg.UserID); userID != "" {
		return userID, nil
	}
	s, err := session.FromAccessToken(cfg.AccessToken)
	if err != nil {
		return "", fmt.Errorf("resolve user: %w", err)
	}
	if s.Expired(cfg.Now()) {
		log.Printf("access token for %s expired at %s; backend reads will fail until login", s.UserID, s.ExpiresAt.Format(time.RFC3339))
	}
	return s.UserID, nil
}

func openStore(backendName, path string) (storage.CacheStore, error) {
	if backendName == StoreBackendMemory {
		return memory.New(), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	switch backendName {
	case StoreBackendSQLite:
		store, err := storagesqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache store: %w", err)
		}
		return store, nil
	case StoreBackendBbolt:
		store, err := storagebbolt.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open bbolt cache store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backendName)
	}
}

// reportView updates health and logs offline transitions. It returns the new
// offline state.
func reportView(healthServer *HealthServer, view View, previous *bool) bool {
	healthServer.SetOffline(view.Offline)
	if previous == nil || *previous != view.Offline {
		if view.Offline {
			log.Printf("dashboard offline: %s", view.Notice)
		} else {
			log.Printf("dashboard fresh: %d/%d lessons complete", view.Progress.CompletedLessons, view.Progress.TotalLessons)
		}
	}
	return view.Offline
}

func writeView(w io.Writer, view View) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(view); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	return nil
}
