package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dmetrikx/goDiscordPersona/internal/bot"
	"github.com/Dmetrikx/goDiscordPersona/internal/config"
	"github.com/Dmetrikx/goDiscordPersona/internal/health"
	"github.com/Dmetrikx/goDiscordPersona/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.NewLogger().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			logger.Error("invalid configuration",
				"field", cfgErr.Field,
				"missing", cfgErr.Missing,
				"error", cfgErr.Message)
		} else {
			logger.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// Keep-alive endpoint
	srv := health.NewServer(cfg.ListenAddr())
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- health.Run(ctx, srv, logger)
	}()

	// Create bot
	b, err := bot.NewBot(cfg, logger)
	if err != nil {
		logger.Error("error creating bot", "error", err)
		os.Exit(1)
	}

	// Start bot
	if err := b.Start(ctx); err != nil {
		logger.Error("error starting bot", "error", err)
		os.Exit(1)
	}

	logger.InfoContext(ctx, "bot is now running, press CTRL-C to exit")

	serverDone := false
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		serverDone = true
		if err != nil {
			logger.Error("keep-alive server failed", "error", err)
		}
		stop()
	}

	// Cleanly close the bot
	logger.Info("shutting down bot")
	if err := b.Close(context.Background()); err != nil {
		logger.Error("error closing bot session", "error", err)
	}
	if !serverDone {
		<-serverErr
	}
}
