package transcription

import (
	"context"
	"time"
)

// SessionConfig holds the parameters for opening a recognition session
type SessionConfig struct {
	Region           string
	LanguageOptions  []string
	IdentifyLanguage bool
	SampleRate       int
	Encoding         string
}

// Provider opens sessions against a speech recognition service
type Provider interface {
	Name() string
	// Streaming reports whether the provider supports real-time sessions
	Streaming() bool
	Open(ctx context.Context, cfg SessionConfig) (Session, error)
}

// Session is one bidirectional recognition stream.
//
// SendAudio and EndStream are only called by the upload goroutine. Events is
// only drained by the reconcile goroutine and is closed when the service ends
// the stream, after which Err reports why (nil for a clean end). Close is safe
// to call concurrently and more than once.
type Session interface {
	SendAudio(ctx context.Context, frame []byte) error
	EndStream(ctx context.Context) error
	Events() <-chan Event
	Err() error
	Close() error
}

// Observer receives pipeline measurements
type Observer interface {
	ObserveResult(status, kind string, elapsed time.Duration)
	FrameSent()
	EventReceived(kind string)
	LoudnessFallback()
}

type nopObserver struct{}

func (nopObserver) ObserveResult(string, string, time.Duration) {}
func (nopObserver) FrameSent()                                  {}
func (nopObserver) EventReceived(string)                        {}
func (nopObserver) LoudnessFallback()                           {}
