// Package main is the entry point for the cryptofolio portfolio tracker.
// It wires the databases, repositories, services, HTTP server and background
// jobs, then blocks until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cryptofolio/internal/clientdata"
	"cryptofolio/internal/clients/binance"
	"cryptofolio/internal/clients/coingecko"
	"cryptofolio/internal/config"
	"cryptofolio/internal/database"
	"cryptofolio/internal/modules/ledger"
	ledgerhandlers "cryptofolio/internal/modules/ledger/handlers"
	"cryptofolio/internal/modules/portfolio"
	portfoliohandlers "cryptofolio/internal/modules/portfolio/handlers"
	"cryptofolio/internal/reliability"
	"cryptofolio/internal/scheduler"
	"cryptofolio/internal/server"
	"cryptofolio/internal/services"
	"cryptofolio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting cryptofolio")

	// Databases. The ledger holds the user's financial records and runs with
	// full durability; the cache is rebuildable and tuned for speed.
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{ledgerDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to run migrations")
		}
	}

	// Repositories and services
	txRepo := ledger.NewTransactionRepository(ledgerDB.Conn(), log)
	historyRepo := ledger.NewHistoryRepository(ledgerDB.Conn(), log)
	ledgerService := ledger.NewService(ledgerDB.Conn(), txRepo, historyRepo, log)

	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	oracle := services.NewPriceOracle(
		cacheRepo,
		time.Duration(cfg.PriceCacheTTLSeconds)*time.Second,
		log,
		coingecko.NewClient(cfg.CoinGeckoBaseURL, log),
		binance.NewClient(cfg.BinanceBaseURL, log),
	)

	portfolioService := portfolio.NewService(txRepo, oracle, log)

	// Backups
	databases := map[string]*database.DB{
		"ledger": ledgerDB,
		"cache":  cacheDB,
	}
	var backupService *reliability.BackupService
	if cfg.Backup.Enabled {
		var s3Client *reliability.S3Client
		if cfg.Backup.Bucket != "" {
			s3Client, err = reliability.NewS3Client(
				cfg.Backup.Endpoint,
				cfg.Backup.Region,
				cfg.Backup.AccessKey,
				cfg.Backup.SecretKey,
				cfg.Backup.Bucket,
				log,
			)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create S3 client")
			}
		}
		backupService = reliability.NewBackupService(
			databases,
			filepath.Join(cfg.DataDir, "backups"),
			s3Client,
			cfg.Backup.Keep,
			log,
		)
	}

	// HTTP server
	srv := server.New(server.Config{
		Log:               log,
		Port:              cfg.Port,
		DevMode:           cfg.DevMode,
		LedgerDB:          ledgerDB,
		CacheDB:           cacheDB,
		LedgerHandlers:    ledgerhandlers.NewHandler(ledgerService, log),
		PortfolioHandlers: portfoliohandlers.NewHandler(portfolioService, log),
		BackupService:     backupService,
	})

	// Background jobs
	sched := scheduler.New(log)

	refreshJob := scheduler.NewRefreshPricesJob(txRepo, oracle, log)
	refreshSchedule := fmt.Sprintf("@every %ds", cfg.PriceRefreshSeconds)
	if err := sched.AddJob(refreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register price refresh job")
	}

	if err := sched.AddJob("@daily", scheduler.NewCleanupCacheJob(cacheRepo, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}

	if err := sched.AddJob("0 0 2 * * *", reliability.NewMaintenanceJob(databases, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	if backupService != nil {
		backupJob := reliability.NewBackupJob(backupService, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}

	sched.Start()

	// Warm the quote cache right away so the first portfolio request does not
	// pay the upstream latency.
	if err := sched.RunNow(refreshJob); err != nil {
		log.Warn().Err(err).Msg("Initial price refresh failed")
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	// Checkpoint so the next start replays no WAL
	for _, db := range databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			log.Warn().Err(err).Str("database", db.Name()).Msg("Final WAL checkpoint failed")
		}
	}

	log.Info().Msg("Shutdown complete")
}
