package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"PrettyChat/internal/api"
	"PrettyChat/internal/config"
	"PrettyChat/internal/gateway"
	"PrettyChat/internal/mode"
	"PrettyChat/internal/provider"
	"PrettyChat/internal/session"
	"PrettyChat/internal/telemetry"
	"PrettyChat/internal/transcript"
)

func main() {
	// Local overrides from .env, if present
	_ = godotenv.Load()

	var configPath string
	var listenAddr string
	var defaultMode string
	var debug bool

	flag.StringVar(&configPath, "config", "config.toml", "Path to TOML config file")
	flag.StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
	flag.StringVar(&defaultMode, "mode", "", "Default provider mode (mock|rag|tinyllama|llama3_1_8b)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if defaultMode != "" {
		cfg.DefaultMode = defaultMode
	}
	if debug {
		cfg.Debug = true
	}
	if !config.ValidMode(cfg.DefaultMode) {
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", cfg.DefaultMode)
		os.Exit(1)
	}

	logger, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize telemetry: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	recorder, err := transcript.Open(cfg.TranscriptDB, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open transcript database: %v\n", err)
		os.Exit(1)
	}
	defer recorder.Close()

	store := session.NewStore()
	registry := mode.NewRegistry(cfg.DefaultMode)
	factory := provider.NewFactory(cfg, logger)
	gw := gateway.New(store, registry, factory, recorder, logger, tracer, meter)
	router := api.NewRouter(gw, logger)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
		// No write timeout: streamed responses stay open as long as the
		// upstream keeps producing and the client keeps reading.
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("starting gateway", "addr", cfg.ListenAddr, "mode", cfg.DefaultMode)
	fmt.Printf("PrettyChat listening on %s (mode: %s)\n", cfg.ListenAddr, cfg.DefaultMode)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
