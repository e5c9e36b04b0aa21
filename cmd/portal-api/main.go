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

	"github.com/openmunicipal/portal/internal/api"
	"github.com/openmunicipal/portal/internal/cache"
	"github.com/openmunicipal/portal/internal/config"
	"github.com/openmunicipal/portal/internal/core"
	"github.com/openmunicipal/portal/internal/db"
	"github.com/openmunicipal/portal/internal/logging"
	"github.com/openmunicipal/portal/internal/maintenance"
	"github.com/openmunicipal/portal/internal/metrics"
	"github.com/openmunicipal/portal/internal/notify"
	"github.com/openmunicipal/portal/internal/storage"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "create-api-key" {
		createAPIKey(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
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
	metrics.RegisterPgxPoolMetrics(pool)

	// Cache tiers: the in-process memory tier plus the badger-backed
	// content tier used for rendered public pages.
	memoryTier := cache.NewMemory(5 * time.Minute)
	contentTier, err := cache.NewPersistent(cfg.CacheDir, time.Hour)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.CacheDir).Msg("failed to open content cache")
	}
	defer contentTier.Close()

	var store storage.Store
	switch cfg.BackupDriver {
	case "s3":
		store = storage.NewS3Store(storage.S3Config{
			Bucket:    cfg.BackupS3Bucket,
			Region:    cfg.BackupS3Region,
			Endpoint:  cfg.BackupS3Endpoint,
			AccessKey: cfg.BackupS3AccessKey,
			SecretKey: cfg.BackupS3SecretKey,
		})
	default:
		store, err = storage.NewFSStore(cfg.BackupLocalDir)
		if err != nil {
			logger.Fatal().Err(err).Str("dir", cfg.BackupLocalDir).Msg("failed to open backup directory")
		}
	}

	services := core.NewServices(pool, notify.NewLogSender(logger), contentTier, memoryTier)

	gateway := maintenance.NewPGGateway(pool, logger)
	recorder := maintenance.NewRecorder(pool, logger)
	tiers := []cache.Tier{memoryTier, contentTier}
	manager := maintenance.NewManager(
		maintenance.NewCacheService(tiers, recorder, logger),
		maintenance.NewDatabaseService(gateway, recorder, logger),
		maintenance.NewBackupService(gateway, store, recorder, logger),
		maintenance.NewIntegrityService(gateway, recorder, logger),
		recorder,
	)

	srv := api.NewServer(logger, pool, services, manager)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting portal API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

func createAPIKey(args []string) {
	fs := flag.NewFlagSet("create-api-key", flag.ExitOnError)
	name := fs.String("name", "", "Name for the API key (required)")
	fs.Parse(args)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "error: --name is required")
		fmt.Fprintln(os.Stderr, "usage: portal-api create-api-key --name <name>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := core.NewAPIKeyService(pool)
	key, rawKey, err := svc.Create(ctx, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key created successfully.\n\n")
	fmt.Printf("  Name:   %s\n", key.Name)
	fmt.Printf("  ID:     %s\n", key.ID)
	fmt.Printf("  Key:    %s\n\n", rawKey)
	fmt.Printf("Save this key - it will not be shown again.\n")
}
