package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dcim-inventory-backend/config"
	"dcim-inventory-backend/internal/api"
	"dcim-inventory-backend/internal/cabling"
	"dcim-inventory-backend/internal/db"
	"dcim-inventory-backend/internal/inventory"
	"dcim-inventory-backend/internal/logging"
	"dcim-inventory-backend/internal/shortid"

	"github.com/rs/zerolog"
)

func main() {
	// Bootstrap logger until the configured one is available
	bootLog := zerolog.New(os.Stderr).With().Timestamp().Str("service", "dcimd").Logger()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		bootLog.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Logging).With().Str("service", "dcimd").Logger()
	logger.Info().Str("path", configPath).Msg("configuration loaded")

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	pool := shortid.NewPool(gormDB, cfg.ShortID, logger.With().Str("component", "shortid").Logger())
	resolver := cabling.NewResolver(gormDB, pool)
	handler := api.NewHandler(api.Services{
		Pool:      pool,
		Batches:   shortid.NewPrintBatches(pool),
		Resolver:  resolver,
		Cables:    cabling.NewService(gormDB, pool, resolver, logger.With().Str("component", "cabling").Logger()),
		Inventory: inventory.NewStore(gormDB, pool, logger.With().Str("component", "inventory").Logger()),
	}, logger)

	router := api.NewRouter(handler, cfg.Server, logger.With().Str("component", "http").Logger())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server ListenAndServe")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Info().Msg("shutdown signal received, stopping server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("HTTP server Shutdown")
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info().Msg("server gracefully stopped")
}
