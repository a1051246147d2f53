// Package recognizer selects the recognition provider named in the configuration.
package recognizer

import (
	"context"
	"fmt"

	"github.com/yegors/scribe/internal/config"
	"github.com/yegors/scribe/internal/recognizer/awstranscribe"
	"github.com/yegors/scribe/internal/recognizer/gemini"
	"github.com/yegors/scribe/internal/recognizer/realtime"
	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/pkg/logger"
)

// NewProvider builds the provider configured in cfg.Provider
func NewProvider(ctx context.Context, cfg config.TranscriptionConfig, log *logger.Logger) (transcription.Provider, error) {
	switch cfg.Provider {
	case "aws", "":
		return awstranscribe.NewProvider(ctx, cfg.Region, log)
	case "realtime":
		return realtime.NewProvider(realtime.Config{
			URL:       cfg.RealtimeURL,
			APIKey:    cfg.RealtimeAPIKey,
			Model:     cfg.RealtimeModel,
			Streaming: cfg.StreamingEnabled(),
		}, log), nil
	case "gemini":
		return gemini.NewProvider(gemini.Config{
			URL:    cfg.GeminiURL,
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown recognition provider: %s", cfg.Provider)
	}
}

// PipelineConfig converts the transcription section into pipeline settings
func PipelineConfig(cfg config.TranscriptionConfig) transcription.Config {
	return transcription.Config{
		FrameSize:              cfg.FrameSizeBytes,
		FrameInterval:          cfg.FrameInterval(),
		FlushDelay:             cfg.FlushDelay(),
		Timeout:                cfg.Timeout(),
		Region:                 cfg.Region,
		DefaultLanguageOptions: cfg.DefaultLanguageOptions,
	}
}
