package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clawminium/agentkernel/internal/config"
	"github.com/clawminium/agentkernel/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start kernel")
	}

	log.Info().
		Str("name", cfg.ServerName).
		Str("version", cfg.ServerVersion).
		Str("protocol", cfg.ProtocolVersion).
		Str("env", cfg.Environment).
		Msg("starting agent kernel")

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("kernel stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("kernel stopped")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
