// Command tokend serves the tokenauth refresh, logout and identity endpoints
// over HTTP and manages the Postgres refresh-token schema.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/tokenauth"
	promexport "github.com/MrEthical07/tokenauth/metrics/export/prometheus"
	"github.com/MrEthical07/tokenauth/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "tokend"
)

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
	backend    string
	listen     string
}

func rootCmd(out io.Writer) *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "JWT access and rotating refresh token service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.backend, "store", "", "Refresh store backend (memory, miniredis, redis, postgres)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			if flags.listen != "" {
				cfg.Listen = flags.listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveHTTP(ctx, cfg, logger)
		},
	}
	serve.Flags().StringVar(&flags.listen, "listen", "", "Listen address")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres refresh-token schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			pool, err := openPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := store.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete Postgres refresh records expired longer than --older-than",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			pool, err := openPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			if olderThan == 0 {
				olderThan = cfg.Store.Retention
			}
			n, err := store.NewPostgresStore(pool, cfg.Store.Retention).
				PurgeExpired(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			logger.Info("purged expired refresh records", slog.Int64("count", n))
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
			return nil
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 0, "Grace past expiry (default: store.retention)")

	var keyBytes int
	keygen := &cobra.Command{
		Use:   "keygen",
		Short: "Print a random base64 master secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := generateSecret(keyBytes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
	keygen.Flags().IntVar(&keyBytes, "bytes", 64, "Secret length in bytes")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	}

	cmd.AddCommand(serve, migrate, purge, keygen, version)
	return cmd
}

func setup(flags globalFlags) (daemonConfig, *slog.Logger, error) {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.backend != "" {
		cfg.Store.Backend = flags.backend
	}
	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func generateSecret(n int) (string, error) {
	if n < 32 {
		return "", fmt.Errorf("secret must be at least 32 bytes, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func openPostgres(ctx context.Context, cfg daemonConfig) (*pgxpool.Pool, error) {
	if cfg.Store.PostgresDSN == "" {
		return nil, errors.New("store.postgres_dsn is required")
	}
	pool, err := pgxpool.New(ctx, cfg.Store.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// buildEngine wires the configured backend into a tokenauth Builder. The
// returned cleanup releases backend connections after the engine is closed.
func buildEngine(ctx context.Context, cfg daemonConfig, logger *slog.Logger) (*tokenauth.Engine, func(), error) {
	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	b := tokenauth.New().WithConfig(engineCfg).WithLogger(logger)
	if engineCfg.Audit.Enabled {
		b = b.WithAuditSink(tokenauth.NewSlogSink(logger.With(slog.String("component", "audit"))))
	}

	redisAddr := cfg.Store.RedisAddr
	switch cfg.Store.Backend {
	case backendMemory:
	case backendMiniredis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		closers = append(closers, mr.Close)
		redisAddr = mr.Addr()
		logger.Warn("using in-process miniredis; refresh records are lost on exit", slog.String("addr", redisAddr))
	case backendRedis:
		if redisAddr == "" {
			return nil, nil, errors.New("store.redis_addr is required for the redis backend")
		}
	case backendPostgres:
		pool, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		b = b.WithPostgres(pool)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if redisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{redisAddr}})
		closers = append(closers, func() { _ = client.Close() })
		b = b.WithRedis(client)
	}

	engine, err := b.Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	for _, w := range engineCfg.Lint() {
		logger.Warn("config lint", slog.String("code", w.Code), slog.String("severity", w.Severity.String()), slog.String("message", w.Message))
	}
	return engine, cleanup, nil
}

func serveHTTP(ctx context.Context, cfg daemonConfig, logger *slog.Logger) error {
	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	defer engine.Close()

	var metrics http.Handler
	if cfg.Metrics.Enabled {
		exp, err := promexport.NewPrometheusExporter(engine)
		if err != nil {
			return fmt.Errorf("metrics exporter: %w", err)
		}
		metrics = exp.Handler()
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newServer(engine, cfg.DevAccounts, metrics, logger).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Listen), slog.String("store", cfg.Store.Backend))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
