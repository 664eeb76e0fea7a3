// Command clobtrade is the entry point for the order execution engine. It
// loads configuration, validates it, wires dependencies, sets up signal
// handling, and starts the application in the configured mode. In trade
// mode the order to place is described by the -token, -side, -size, and
// -price flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantish/clobtrade/internal/app"
	"github.com/quantish/clobtrade/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	token := flag.String("token", "", "outcome token ID to trade (trade mode)")
	side := flag.String("side", "BUY", "order side: BUY or SELL (trade mode)")
	size := flag.Float64("size", 0, "order size in outcome tokens (trade mode)")
	price := flag.Float64("price", 0, "limit price in (0,1); ignored for market orders")
	market := flag.Bool("market", false, "place a marketable order instead of a limit order")
	allowPartial := flag.Bool("allow-partial", false, "accept partial fills on market orders (FAK instead of FOK)")
	validFor := flag.Duration("valid-for", 0, "limit order lifetime; zero means good-till-cancelled")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("clobtrade starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	// Create the application.
	application := app.New(cfg, logger)
	if cfg.Mode == "trade" {
		if *token == "" || *size <= 0 {
			logger.Error("trade mode requires -token and a positive -size")
			os.Exit(1)
		}
		application.WithOrder(app.OrderRequest{
			TokenID:      *token,
			Side:         *side,
			Market:       *market,
			Size:         *size,
			Price:        *price,
			AllowPartial: *allowPartial,
			ValidFor:     *validFor,
		})
	}
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the application.
	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if err == context.Canceled {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("clobtrade stopped")
}
