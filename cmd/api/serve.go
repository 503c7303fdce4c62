package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"internportal/internal/app"
	"internportal/internal/config"
	"internportal/internal/database"
	"internportal/internal/domain/event"
	apphttp "internportal/internal/http"
	"internportal/internal/http/handlers"
	"internportal/internal/http/metrics"
	httpmw "internportal/internal/http/middleware"
	"internportal/internal/observability"
	"internportal/internal/realtime"
	"internportal/internal/repository/sqlstore"
	"internportal/internal/security"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*sql.DB, error) {
	return database.Open(ctx, database.Config{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdle:     cfg.DBConnMaxIdle,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	}, logger)
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel)

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return err
	}

	accountRepo := sqlstore.NewAccountRepository(db)
	internshipRepo := sqlstore.NewInternshipRepository(db)
	applicationRepo := sqlstore.NewApplicationRepository(db)

	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	jwtProvider := security.NewJWTProvider(cfg.JWTSecret)

	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	var publisher event.Publisher = hub
	var limiter httpmw.Limiter = httpmw.NewRateLimiter()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, continuing with local fallbacks", "error", err)
		}
		relay := realtime.NewRedisRelay(rdb, realtime.DefaultChannel, hub, logger)
		go relay.Run(ctx)
		publisher = relay
		limiter = httpmw.NewRedisLimiter(rdb, "internportal:ratelimit")
	}

	authService, err := app.NewAuthService(accountRepo, hasher, jwtProvider, logger, app.AuthOptions{
		TokenTTL:           cfg.TokenTTL,
		StudentEmailDomain: cfg.StudentEmailDomain,
	})
	if err != nil {
		return err
	}
	internshipService := app.NewInternshipService(internshipRepo, publisher, logger)
	applicationService := app.NewApplicationService(applicationRepo, internshipRepo, publisher, logger)
	adminService := app.NewAdminService(accountRepo, publisher, logger)

	collector := metrics.NewCollector()
	collector.TrackRealtimeClients(hub.ClientCount)

	router := apphttp.NewRouter(apphttp.RouterDependencies{
		AccountHandler:     handlers.NewAccountHandler(authService),
		InternshipHandler:  handlers.NewInternshipHandler(internshipService),
		ApplicationHandler: handlers.NewApplicationHandler(applicationService),
		AdminHandler:       handlers.NewAdminHandler(adminService),
		HealthHandler:      handlers.NewHealthHandler(db),
		Realtime:           realtime.NewHandler(hub, authService, cfg.AllowedOrigins, logger),
		AuthMiddleware:     httpmw.NewAuthMiddleware(authService),
		Metrics:            collector,
		Logger:             logger,
		AllowedOrigins:     cfg.AllowedOrigins,
		RequestTimeout:     cfg.RequestTimeout,
		Limiter:            limiter,
		LoginPerMin:        cfg.LoginPerMin,
		ApplyPerMin:        cfg.ApplyPerMin,
		TrustProxy:         cfg.TrustProxy,
	})
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API started", "addr", server.Addr, "driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
