// Package realtime implements a recognition provider over a websocket
// transcription API that exchanges JSON events.
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/pkg/logger"
)

// Config represents the configuration for the realtime provider
type Config struct {
	URL              string // ws(s):// or http(s):// endpoint
	APIKey           string
	Model            string
	Streaming        bool
	HandshakeTimeout time.Duration
	DialAttempts     int
	RetryInterval    time.Duration
	EndStreamIdle    time.Duration // how long to wait for output after the commit
}

// Provider opens websocket transcription sessions
type Provider struct {
	cfg    Config
	logger *logger.Logger
}

// NewProvider creates a new realtime provider
func NewProvider(cfg Config, log *logger.Logger) *Provider {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 45 * time.Second
	}
	if cfg.DialAttempts <= 0 {
		cfg.DialAttempts = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 2 * time.Second
	}
	if cfg.EndStreamIdle <= 0 {
		cfg.EndStreamIdle = 5 * time.Second
	}
	if cfg.APIKey == "" {
		log.Warn("Realtime API key is empty - connections will be unauthenticated")
	}

	return &Provider{
		cfg:    cfg,
		logger: log.Named("realtime"),
	}
}

func (p *Provider) Name() string { return "realtime" }

func (p *Provider) Streaming() bool { return p.cfg.Streaming }

// Open dials the service and configures the transcription session
func (p *Provider) Open(ctx context.Context, sc transcription.SessionConfig) (transcription.Session, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := newSession(id, conn, p.cfg.EndStreamIdle, p.logger.With(logger.String("session_id", id)))

	update := sessionUpdate{
		Type: "session.update",
		Session: sessionSettings{
			InputAudioFormat: "pcm16",
			SampleRate:       sc.SampleRate,
			Transcription: transcriptionSettings{
				Model:            p.cfg.Model,
				LanguageOptions:  sc.LanguageOptions,
				IdentifyLanguage: sc.IdentifyLanguage,
			},
		},
	}
	if err := s.writeJSON(ctx, update); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: configuring session: %w", transcription.ErrTransport, err)
	}

	go s.readLoop()

	p.logger.Info("Opened realtime transcription session",
		logger.String("session_id", id),
		logger.Strings("language_options", sc.LanguageOptions))

	return s, nil
}

// dial connects to the websocket endpoint with a bounded number of attempts
func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL := toWebSocketURL(p.cfg.URL)

	dialer := websocket.Dialer{
		HandshakeTimeout: p.cfg.HandshakeTimeout,
	}

	headers := http.Header{}
	if p.cfg.APIKey != "" {
		headers.Set("Authorization", fmt.Sprintf("Bearer %s", p.cfg.APIKey))
	}

	var lastErr error
	for attempt := 0; attempt < p.cfg.DialAttempts; attempt++ {
		p.logger.Debug("Attempting to connect to realtime service",
			logger.String("url", wsURL),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", p.cfg.DialAttempts))

		conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
		if err == nil {
			p.logger.Debug("Connected to realtime service", logger.String("status", resp.Status))
			return conn, nil
		}
		lastErr = err

		p.logger.Warn("Failed to connect to realtime service",
			logger.Int("attempt", attempt+1),
			logger.Error(err))

		if attempt == p.cfg.DialAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.cfg.RetryInterval):
		}
	}

	return nil, fmt.Errorf("%w: failed to connect after %d attempts: %w",
		transcription.ErrTransport, p.cfg.DialAttempts, lastErr)
}

// toWebSocketURL converts an http(s) URL to the corresponding ws(s) URL
func toWebSocketURL(u string) string {
	b := strings.TrimRight(u, "/")
	if strings.HasPrefix(b, "https://") {
		return "wss://" + strings.TrimPrefix(b, "https://")
	} else if strings.HasPrefix(b, "http://") {
		return "ws://" + strings.TrimPrefix(b, "http://")
	}
	return b
}

type sessionUpdate struct {
	Type    string          `json:"type"`
	Session sessionSettings `json:"session"`
}

type sessionSettings struct {
	InputAudioFormat string                `json:"input_audio_format"`
	SampleRate       int                   `json:"sample_rate"`
	Transcription    transcriptionSettings `json:"input_audio_transcription"`
}

type transcriptionSettings struct {
	Model            string   `json:"model,omitempty"`
	LanguageOptions  []string `json:"language_options"`
	IdentifyLanguage bool     `json:"identify_language"`
}
