// Parley — multi-tenant chat backend
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parleyhq/parley/internal/ai"
	parleyapi "github.com/parleyhq/parley/internal/api"
	"github.com/parleyhq/parley/internal/api/handler"
	"github.com/parleyhq/parley/internal/api/middleware"
	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/db"
	"github.com/parleyhq/parley/internal/health"
	"github.com/parleyhq/parley/internal/observability"
	"github.com/parleyhq/parley/internal/onboarding"
	"github.com/parleyhq/parley/internal/seed"
	"github.com/parleyhq/parley/internal/store"
	"github.com/parleyhq/parley/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability -------------------------------------------------------
	obs, log, err := observability.New(ctx, &observability.Config{
		ServiceName:    "parley",
		ServiceVersion: version.Version,
		LogLevel:       cfg.Log.Level,
		LogFormat:      cfg.Log.Format,
		OTLPEndpoint:   cfg.OTel.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer obs.Shutdown(context.Background())
	slog.SetDefault(log)
	log.Info("starting parley", "version", version.Version, "commit", version.Commit, "db_driver", cfg.DB.Driver)

	// --- Database ------------------------------------------------------------
	// db.New opens the connection and runs migrations (AutoMigrate for SQLite,
	// golang-migrate for Postgres).
	gormDB, pool, err := db.New(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if pool != nil {
		defer pool.Close()
	}
	log.Info("database ready", "driver", cfg.DB.Driver)

	priv := store.NewPrivileged(gormDB)

	// --- Seed tenant ---------------------------------------------------------
	if err := seed.EnsureDemoTenant(ctx, priv, seed.TenantOptions{
		OrgName:     cfg.App.SeedOrgName,
		AdminUserID: cfg.App.SeedAdminUserID,
		AdminEmail:  cfg.App.SeedAdminEmail,
	}, log); err != nil {
		return fmt.Errorf("seed tenant: %w", err)
	}

	// --- AI provider ---------------------------------------------------------
	provider, err := buildProvider(ctx, &cfg.AI)
	if err != nil {
		return fmt.Errorf("build ai provider: %w", err)
	}
	log.Info("ai provider ready", "provider", cfg.AI.Provider, "model", cfg.AI.Model)

	// --- Services ------------------------------------------------------------
	onboardSvc := onboarding.New(priv, log)
	chatSvc := chat.NewService(provider, 20, log)

	// --- HTTP routes ---------------------------------------------------------
	mux := http.NewServeMux()
	parleyapi.RegisterRoutes(mux, parleyapi.Handlers{
		Health:     health.New(db.NewPinger(gormDB)),
		Onboarding: handler.NewOnboardingHandler(onboardSvc, log),
		Webhook:    handler.NewWebhookHandler(onboardSvc, log),
		Chat:       handler.NewChatHandler(chatSvc, priv, log),
		Dashboard:  handler.NewDashboardHandler(),
	}, parleyapi.AuthDeps{
		JWTSecret:      cfg.Auth.JWTSecret,
		Issuer:         cfg.Auth.Issuer,
		ServiceRoleKey: cfg.Auth.ServiceRoleKey,
		Members:        onboardSvc,
	})
	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", promhttp.Handler())

	root := middleware.CORS(cfg.CORS.AllowedOrigins)(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Start server --------------------------------------------------------
	log.Info("http server listening", "addr", srv.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped cleanly")
	return nil
}

// buildProvider selects the completion provider by name. An unset API key
// downgrades to the noop provider so the service still boots and serves the
// echo fallback.
func buildProvider(ctx context.Context, cfg *config.AIConfig) (ai.Provider, error) {
	reg := ai.NewRegistry()
	reg.Register("openai", func(_ context.Context, model string) (ai.Provider, error) {
		return ai.NewOpenAIProvider(cfg.APIBase, cfg.APIKey, model), nil
	})
	reg.Register("noop", func(_ context.Context, _ string) (ai.Provider, error) {
		return ai.NewNoopProvider(), nil
	})

	name := cfg.Provider
	if name != "noop" && cfg.APIKey == "" {
		name = "noop"
	}
	return reg.Get(ctx, name, cfg.Model)
}
