// bb84d serves the BB84 simulator and its web client over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qkdsim/bb84/bb84"
	"github.com/qkdsim/bb84/bb84/photon"
	"github.com/qkdsim/bb84/internal/config"
	"github.com/qkdsim/bb84/internal/logger"
	"github.com/qkdsim/bb84/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{Level: "info", Pretty: true})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	log.Info().Msg("Starting BB84 simulator")

	var src photon.Source
	if cfg.Seed != 0 {
		log.Warn().Int64("seed", cfg.Seed).Msg("Using a fixed seed; runs are reproducible")
		src = photon.NewSeededSource(cfg.Seed)
	} else if src, err = photon.NewEntropySource(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed randomness")
	}

	runner, err := bb84.NewRunner(bb84.Options{
		Rand:               src,
		DetectionThreshold: &cfg.DetectionThreshold,
		MaxBits:            cfg.MaxBits,
		Log:                &log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build protocol runner")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Addr:            cfg.Addr,
		Log:             log,
		Runner:          runner,
		MaxMessageBytes: cfg.MaxMessageBytes,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
