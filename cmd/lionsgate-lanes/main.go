package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/lionsgate-lanes/internal/api"
	"github.com/ironsheep/lionsgate-lanes/internal/camera"
	"github.com/ironsheep/lionsgate-lanes/internal/config"
	"github.com/ironsheep/lionsgate-lanes/internal/delay"
	"github.com/ironsheep/lionsgate-lanes/internal/lanes"
	"github.com/ironsheep/lionsgate-lanes/internal/messaging"
	"github.com/ironsheep/lionsgate-lanes/internal/monitor"
	"github.com/ironsheep/lionsgate-lanes/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	mode := "mcp"
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("lionsgate-lanes %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		case "mcp", "serve":
			mode = os.Args[1]
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
			printUsage()
			os.Exit(2)
		}
	}

	// Stdout is reserved for the MCP protocol
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid engine configuration")
	}

	log.Info().
		Str("version", Version).
		Str("commit", GitCommit).
		Str("mode", mode).
		Str("camera", cfg.CameraURL).
		Str("timezone", cfg.Timezone).
		Str("policy", string(engineOpts.Policy)).
		Msg("Starting Lions Gate lane service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := lanes.NewEngine(engineOpts)

	monOpts := monitor.Options{
		Interval:    cfg.RefreshInterval,
		PassTimeout: cfg.PassTimeout,
	}

	var natsService *messaging.Service
	if cfg.NatsURL != "" {
		natsService, err = messaging.NewService(messaging.Options{
			URL:            cfg.NatsURL,
			Subject:        cfg.NatsSubject,
			ConnectTimeout: cfg.NatsConnectTimeout,
			ReconnectWait:  cfg.NatsReconnectWait,
			MaxReconnects:  cfg.NatsMaxReconnects,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		monOpts.Publisher = natsService
	}

	mon := monitor.New(engine, camera.NewHTTPSource(cfg.CameraURL), monOpts)

	if natsService != nil {
		// Refreshes run off the NATS delivery goroutine, one at a time.
		go mon.ServeRequests(ctx)
		if _, err := natsService.SubscribeRefresh(mon.RequestRefresh); err != nil {
			log.Fatal().Err(err).Msg("Failed to subscribe to refresh requests")
		}
		log.Info().Str("subject", natsService.RefreshSubject()).Msg("Listening for refresh requests")
	}

	switch mode {
	case "serve":
		runServe(ctx, cfg, mon)
	default:
		runMCP(ctx, cfg, mon)
	}

	if natsService != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.NatsDrainTimeout)
		defer cancel()
		if err := natsService.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("NATS shutdown failed")
		}
	}
	log.Info().Msg("Shutdown complete")
}

func runMCP(ctx context.Context, cfg *config.Config, mon *monitor.Monitor) {
	srv := server.New(mon, server.Options{
		Version:   Version,
		CameraURL: cfg.CameraURL,
		QueueURL:  cfg.QueueURL,
		Delay:     delay.NewReader(camera.NewHTTPSource(cfg.DelayURL), delay.NewTesseract(cfg.OCRLanguage)),
	})
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("MCP server error")
	}
}

func runServe(ctx context.Context, cfg *config.Config, mon *monitor.Monitor) {
	apiServer := api.NewServer(cfg.HTTPPort, Version, mon)
	apiServer.Setup()

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	if err := apiServer.Stop(context.Background()); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shutdown")
	}
	<-done
}

func printUsage() {
	fmt.Println("lionsgate-lanes - Lions Gate Bridge lane configuration service")
	fmt.Println()
	fmt.Println("Usage: lionsgate-lanes [mcp|serve] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  mcp              MCP server over stdin/stdout (default)")
	fmt.Println("  serve            HTTP status API with a background refresh cycle")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  LANES_LOG_LEVEL=debug        Log level (default info)")
	fmt.Println("  LANES_CAMERA_URL             Bridge camera image")
	fmt.Println("  LANES_REFRESH_INTERVAL=60s   Refresh cycle interval")
	fmt.Println("  LANES_TIMEZONE               Schedule timezone (default America/Vancouver)")
	fmt.Println("  LANES_FALLBACK_POLICY        weekday or weekend-aware")
	fmt.Println("  LANES_HTTP_PORT=8080         Port for serve mode")
	fmt.Println("  LANES_NATS_URL               Publish updates to NATS when set")
	fmt.Println("  LANES_TUNING_FILE            JSON classifier tuning overrides")
}
