package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yegors/scribe/internal/audio"
	"github.com/yegors/scribe/internal/config"
	"github.com/yegors/scribe/internal/recognizer"
	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults apply when none is found)")
	languages := flag.String("languages", "", "Comma-separated candidate languages (e.g. en-US,id-ID)")
	region := flag.String("region", "", "Recognition service region (overrides the configuration)")
	catalogue := flag.Bool("catalogue", false, "Print supported languages and formats and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <audio file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *catalogue {
		printJSON(transcription.Catalogue())
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		if *configPath != "" {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = &config.Config{}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout carries only the result
	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := recognizer.NewProvider(ctx, cfg.Transcription, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating recognition provider: %v\n", err)
		os.Exit(1)
	}

	transcriber := transcription.NewTranscriber(
		recognizer.PipelineConfig(cfg.Transcription),
		provider,
		audio.NewNormalizer(cfg.Transcription.WorkDir, log),
		nil,
		log,
	)

	result := transcriber.TranscribeFile(ctx, flag.Arg(0), transcription.ParseLanguageOptions(*languages), *region)
	printJSON(result)

	if result.Status != transcription.StatusSuccess {
		log.Sync()
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
		os.Exit(1)
	}
}
