package recognizer

import (
	"context"
	"testing"
	"time"

	"github.com/yegors/scribe/internal/config"
	"github.com/yegors/scribe/pkg/logger"
)

func TestNewProviderRealtime(t *testing.T) {
	streaming := false
	p, err := NewProvider(context.Background(), config.TranscriptionConfig{
		Provider:    "realtime",
		RealtimeURL: "ws://127.0.0.1:1/v1/realtime",
		Streaming:   &streaming,
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "realtime" {
		t.Errorf("expected realtime provider, got %q", p.Name())
	}
	if p.Streaming() {
		t.Error("streaming=false should be honoured")
	}
}

func TestNewProviderGemini(t *testing.T) {
	p, err := NewProvider(context.Background(), config.TranscriptionConfig{
		Provider:     "gemini",
		GeminiAPIKey: "k",
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "gemini" || !p.Streaming() {
		t.Errorf("unexpected provider %q (streaming %v)", p.Name(), p.Streaming())
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider(context.Background(), config.TranscriptionConfig{Provider: "whisper"}, logger.NewNop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestPipelineConfig(t *testing.T) {
	cfg := config.TranscriptionConfig{
		Region:                 "eu-west-1",
		DefaultLanguageOptions: []string{"fr-FR"},
		FrameSizeBytes:         2048,
		FrameIntervalMs:        20,
		FlushDelayMs:           500,
		TimeoutSeconds:         30,
	}

	pc := PipelineConfig(cfg)
	if pc.FrameSize != 2048 || pc.FrameInterval != 20*time.Millisecond || pc.FlushDelay != 500*time.Millisecond {
		t.Errorf("unexpected pacing %+v", pc)
	}
	if pc.Timeout != 30*time.Second || pc.Region != "eu-west-1" || pc.DefaultLanguageOptions[0] != "fr-FR" {
		t.Errorf("unexpected settings %+v", pc)
	}
}
