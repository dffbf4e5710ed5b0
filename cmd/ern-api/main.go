package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/edvin/ern/internal/api"
	"github.com/edvin/ern/internal/api/handler"
	mw "github.com/edvin/ern/internal/api/middleware"
	"github.com/edvin/ern/internal/archive"
	"github.com/edvin/ern/internal/channel"
	"github.com/edvin/ern/internal/config"
	"github.com/edvin/ern/internal/core"
	"github.com/edvin/ern/internal/db"
	"github.com/edvin/ern/internal/escalation"
	"github.com/edvin/ern/internal/idempotency"
	"github.com/edvin/ern/internal/logging"
	"github.com/edvin/ern/internal/metrics"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "issue-token" {
		issueToken(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "", "Migration files directory (default: embedded migrations)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := metrics.RegisterPoolMetrics(prometheus.DefaultRegisterer, metrics.PgxPoolStats(pool)); err != nil {
		logger.Fatal().Err(err).Msg("failed to register pool metrics")
	}

	channels, err := channel.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure delivery channel")
	}
	logger.Info().Str("provider", cfg.DeliveryProvider).Msg("delivery channel configured")

	var opts []escalation.Option
	if cfg.ArchiveS3Bucket != "" {
		archiver := archive.NewS3Archiver(archive.Options{
			Bucket:          cfg.ArchiveS3Bucket,
			Endpoint:        cfg.ArchiveS3Endpoint,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}, logger)
		opts = append(opts, escalation.WithArchiver(archiver))
		logger.Info().Str("bucket", cfg.ArchiveS3Bucket).Msg("escalation log archive enabled")
	}

	var idem handler.IdempotencyStore
	if cfg.RedisURL != "" {
		store, err := idempotency.NewRedisStore(ctx, cfg.RedisURL, cfg.IdempotencyTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer store.Close()
		idem = store
		logger.Info().Dur("ttl", cfg.IdempotencyTTL).Msg("idempotency keys enabled")
	}

	engine := escalation.NewEngine(core.NewStore(pool), channels, escalation.DispatchConfig{
		MaxAttempts:    cfg.DeliveryMaxAttempts,
		InitialBackoff: cfg.DeliveryInitialBackoff,
		MaxBackoff:     cfg.DeliveryMaxBackoff,
		AttemptTimeout: cfg.DeliveryAttemptTimeout,
		Concurrency:    cfg.DispatchConcurrency,
	}, logger, opts...)

	srv := api.NewServer(logger, engine, pool, idem, cfg)

	httpServer := &http.Server{
		Addr:        cfg.HTTPListenAddr,
		Handler:     srv,
		ReadTimeout: 15 * time.Second,
		// Trigger answers only after every responder branch settles.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting emergency API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsListenAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsListenAddr, prometheus.DefaultGatherer)
		go func() {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}
}

func issueToken(args []string) {
	fs := flag.NewFlagSet("issue-token", flag.ExitOnError)
	user := fs.String("user", "", "User ID the token authenticates (required)")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	fs.Parse(args)

	if *user == "" {
		fmt.Fprintln(os.Stderr, "error: --user is required")
		fmt.Fprintln(os.Stderr, "usage: ern-api issue-token --user <id> [--ttl 24h]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.JWTSecret) < 32 {
		fmt.Fprintln(os.Stderr, "error: JWT_SECRET must be set to at least 32 bytes")
		os.Exit(1)
	}

	token, err := mw.IssueToken(cfg.JWTSecret, cfg.JWTIssuer, *user, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
