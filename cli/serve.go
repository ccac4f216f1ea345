package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dh-form/config"
	"dh-form/domain"
	httpLayer "dh-form/http"
	"dh-form/i18n"
	"dh-form/repository"
	"dh-form/service"
)

const shutdownTimeout = 10 * time.Second

type ServeOptions struct {
	*RootOptions
	ConfigPath string
	Addr       string
	Endpoint   string
	RedisAddr  string
	Database   string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Denavit-Hartenberg web form",
		Long: `Serve the parameter form over HTTP.

Sessions are kept in Redis when --redis is set and in memory otherwise.
Successful calculations are recorded in SQLite when --db is set.

Example:
  dhform serve --addr :8080
  dhform serve --config dhform.yaml --redis localhost:6379 --db ./history.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "calculation service URL (overrides config)")
	cmd.Flags().StringVar(&opts.RedisAddr, "redis", "", "Redis address for sessions (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite history database (overrides config)")

	return cmd
}

func (o *ServeOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = o.Addr
	}
	if cmd.Flags().Changed("endpoint") {
		cfg.Endpoint = o.Endpoint
	}
	if cmd.Flags().Changed("redis") {
		cfg.RedisAddr = o.RedisAddr
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = o.Database
	}
	return cfg, cfg.Validate()
}

// app is everything serve builds from a config, with its cleanup.
type app struct {
	handler http.Handler
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("error during cleanup", "error", err)
		}
	}
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger := slog.Default()
	a := &app{}

	var sessions repository.CacheRepository
	if cfg.RedisAddr != "" {
		redisCache := repository.NewRedisCache(cfg.RedisAddr, "dhform:")
		if err := redisCache.Ping(ctx); err != nil {
			redisCache.Close()
			return nil, err
		}
		a.closers = append(a.closers, redisCache.Close)
		sessions = redisCache
		logger.Info("sessions in redis", "addr", cfg.RedisAddr)
	} else {
		sessions = repository.NewMemoryCache()
		logger.Info("sessions in memory")
	}

	var history repository.HistoryRepository
	if cfg.DBPath != "" {
		store, err := repository.OpenHistorySQLite(cfg.DBPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		history = store
		logger.Info("history in sqlite", "path", cfg.DBPath)
	} else {
		history = repository.NewHistoryMemory()
	}

	client := service.NewComputeClient(cfg.Endpoint, cfg.RequestTimeout, logger)
	formService := service.NewFormService(sessions, history, client,
		domain.UUIDGenerator{}, cfg.FormOptions(), logger)

	rateLimiter := httpLayer.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.Refill)
	a.closers = append(a.closers, func() error { rateLimiter.Stop(); return nil })

	a.handler = httpLayer.NewRouter(
		httpLayer.NewFormHandler(formService, i18n.NewBundle(), logger),
		httpLayer.NewAPIHandler(formService, logger),
		rateLimiter,
		cfg.SessionTTL,
		logger,
	)
	return a, nil
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start", err)
	}
	defer a.Close()

	// Calculations are not bounded by default, so neither are writes.
	var writeTimeout time.Duration
	if cfg.RequestTimeout > 0 {
		writeTimeout = cfg.RequestTimeout + 15*time.Second
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Addr, "endpoint", cfg.Endpoint)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return WrapExitError(ExitCommandError, "server error", err)
	case <-ctx.Done():
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("server exited")
	return nil
}
