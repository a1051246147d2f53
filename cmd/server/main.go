package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yegors/scribe/internal/api"
	"github.com/yegors/scribe/internal/audio"
	"github.com/yegors/scribe/internal/config"
	"github.com/yegors/scribe/internal/metrics"
	"github.com/yegors/scribe/internal/recognizer"
	"github.com/yegors/scribe/internal/storage/sqlite"
	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/internal/websocket"
	"github.com/yegors/scribe/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting scribe server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
		logger.String("provider", cfg.Transcription.Provider),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := recognizer.NewProvider(ctx, cfg.Transcription, log)
	if err != nil {
		log.Error("Failed to create recognition provider", logger.Error(err))
		os.Exit(1)
	}

	var m *metrics.Metrics
	var observer transcription.Observer
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics()
		observer = m
		log.Info("Prometheus metrics enabled", logger.String("path", cfg.Metrics.Path))
	}

	transcriber := transcription.NewTranscriber(
		recognizer.PipelineConfig(cfg.Transcription),
		provider,
		audio.NewNormalizer(cfg.Transcription.WorkDir, log),
		observer,
		log,
	)

	var transcriptionStorage *sqlite.TranscriptionStorage
	if cfg.Storage.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			log.Error("Failed to create storage directory", logger.Error(err))
			os.Exit(1)
		}
		db, err := sqlite.Open(cfg.Storage.SQLitePath, log)
		if err != nil {
			log.Error("Failed to open database", logger.Error(err))
			os.Exit(1)
		}
		defer db.Close()

		transcriptionStorage, err = sqlite.NewTranscriptionStorage(db, log)
		if err != nil {
			log.Error("Failed to create transcription storage", logger.Error(err))
			os.Exit(1)
		}
	} else {
		log.Info("Transcription history disabled in configuration")
	}

	wsServer := websocket.NewServer(log)
	go wsServer.Run(ctx)

	handler := api.NewHandler(transcriber, transcriptionStorage, wsServer, cfg, log)
	router := api.NewRouter(handler, m, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", logger.String("addr", server.Addr), logger.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	// In-flight transcriptions get up to one session timeout to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Transcription.Timeout()+5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	// Stop the hub after HTTP so late results are still broadcast
	cancel()

	log.Info("Server fully stopped")
}
