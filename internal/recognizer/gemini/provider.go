// Package gemini implements a recognition provider over the Gemini Live
// bidirectional streaming API, using its input audio transcription.
package gemini

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/pkg/logger"
)

const (
	// DefaultURL is the Gemini Live websocket endpoint
	DefaultURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	// DefaultModel is a Live model that supports input transcription
	DefaultModel = "gemini-2.0-flash-live-001"
)

// Config represents the configuration for the Gemini provider
type Config struct {
	URL              string
	APIKey           string
	Model            string
	HandshakeTimeout time.Duration
	EndStreamIdle    time.Duration // how long to wait for output after the audio ends
}

// Provider opens Gemini Live transcription sessions
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *logger.Logger
}

// NewProvider creates a new Gemini provider
func NewProvider(cfg Config, log *logger.Logger) *Provider {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if !strings.Contains(cfg.Model, "/") {
		cfg.Model = "models/" + cfg.Model
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 30 * time.Second
	}
	if cfg.EndStreamIdle <= 0 {
		cfg.EndStreamIdle = 5 * time.Second
	}
	if cfg.APIKey == "" {
		log.Warn("Gemini API key is empty - connections will be rejected")
	}

	return &Provider{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: log.Named("gemini"),
	}
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Streaming() bool { return true }

// Open connects to the Live API and sends the setup message
func (p *Provider) Open(ctx context.Context, sc transcription.SessionConfig) (transcription.Session, error) {
	u, err := url.Parse(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid Gemini URL: %w", transcription.ErrTransport, err)
	}
	q := u.Query()
	q.Set("key", p.cfg.APIKey)
	u.RawQuery = q.Encode()

	p.logger.Debug("Connecting to Gemini Live API", logger.String("host", u.Host))

	conn, _, err := p.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial Gemini: %w", transcription.ErrTransport, err)
	}

	id := uuid.NewString()
	s := newSession(conn, sc.SampleRate, p.cfg.EndStreamIdle, p.logger.With(logger.String("session_id", id)))

	if err := s.writeJSON(ctx, p.setupMessage(sc)); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: failed to send setup to Gemini: %w", transcription.ErrTransport, err)
	}

	go s.readLoop()

	p.logger.Info("Opened Gemini transcription session",
		logger.String("session_id", id),
		logger.String("model", p.cfg.Model))

	return s, nil
}

func (p *Provider) setupMessage(sc transcription.SessionConfig) map[string]any {
	instruction := "You are a transcriber. Transcribe the audio exactly. Do not add anything else."
	if len(sc.LanguageOptions) > 0 {
		instruction += " The audio is in one of: " + strings.Join(sc.LanguageOptions, ", ") + "."
	}

	return map[string]any{
		"setup": map[string]any{
			"model": p.cfg.Model,
			"generationConfig": map[string]any{
				"responseModalities": []string{"TEXT"},
			},
			"systemInstruction": map[string]any{
				"parts": []map[string]any{{"text": instruction}},
			},
			"inputAudioTranscription": map[string]any{},
		},
	}
}
