package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yegors/scribe/internal/audio"
	"github.com/yegors/scribe/pkg/logger"
)

// UploaderConfig controls framing and pacing of outbound audio
type UploaderConfig struct {
	FrameSize     int
	FrameInterval time.Duration
	FlushDelay    time.Duration
}

// Uploader streams canonical audio to a session in fixed-size, paced frames
type Uploader struct {
	cfg      UploaderConfig
	observer Observer
	logger   *logger.Logger
}

// NewUploader creates a new uploader
func NewUploader(cfg UploaderConfig, observer Observer, log *logger.Logger) *Uploader {
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = DefaultFrameSize
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Uploader{
		cfg:      cfg,
		observer: observer,
		logger:   log.Named("uploader"),
	}
}

// Upload sends every frame in offset order, then the end-of-stream marker,
// then waits the flush delay. Send failures are not retried.
func (u *Uploader) Upload(ctx context.Context, s Session, a *audio.CanonicalAudio) error {
	frames := a.Frames(u.cfg.FrameSize)

	u.logger.Debug("Starting audio upload",
		Int("frames", len(frames)),
		Int("bytes", a.Len()),
		Int("frame_size", u.cfg.FrameSize))

	for i, frame := range frames {
		if err := s.SendAudio(ctx, frame); err != nil {
			return u.sendError(ctx, fmt.Sprintf("frame %d", i), err)
		}
		u.observer.FrameSent()

		// Log every 10th frame to avoid excessive logging
		if (i+1)%10 == 0 {
			u.logger.Debug("Sent audio frames", Int("sent", i+1), Int("total", len(frames)))
		}

		if err := sleepContext(ctx, u.cfg.FrameInterval); err != nil {
			return err
		}
	}

	if err := s.EndStream(ctx); err != nil {
		return u.sendError(ctx, "end of stream", err)
	}
	u.logger.Debug("Audio upload complete, waiting for trailing results",
		Duration("flush_delay", u.cfg.FlushDelay))

	return sleepContext(ctx, u.cfg.FlushDelay)
}

func (u *Uploader) sendError(ctx context.Context, what string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, ErrSessionClosed) {
		return fmt.Errorf("sending %s: %w", what, err)
	}
	return fmt.Errorf("%w: sending %s: %w", ErrTransport, what, err)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
