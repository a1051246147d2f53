package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yegors/scribe/internal/audio"
	"github.com/yegors/scribe/pkg/logger"
)

// Import the logger package's exported functions
var (
	String   = logger.String
	Int      = logger.Int
	Float64  = logger.Float64
	Duration = logger.Duration
	Error    = logger.Error
)

// AudioNormalizer converts uploaded bytes into canonical PCM
type AudioNormalizer interface {
	Normalize(raw []byte, codec audio.Codec) (*audio.CanonicalAudio, error)
}

// Transcriber runs one streaming recognition session per request
type Transcriber struct {
	cfg        Config
	provider   Provider
	normalizer AudioNormalizer
	observer   Observer
	logger     *logger.Logger
}

// NewTranscriber creates a new transcriber. observer may be nil.
func NewTranscriber(
	cfg Config,
	provider Provider,
	normalizer AudioNormalizer,
	observer Observer,
	log *logger.Logger,
) *Transcriber {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Transcriber{
		cfg:        cfg.withDefaults(),
		provider:   provider,
		normalizer: normalizer,
		observer:   observer,
		logger:     log.Named("transcriber").With(String("provider", provider.Name())),
	}
}

// TranscribeFile reads path from disk and transcribes it
func (t *Transcriber) TranscribeFile(ctx context.Context, path string, languageOptions []string, region string) *Result {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t.finish(time.Now(), errorResult(
				fmt.Errorf("%w: %s", ErrFileNotFound, path),
				fmt.Sprintf("Audio file not found: %s", path)))
		}
		return t.finish(time.Now(), errorResult(err, fmt.Sprintf("Transcription failed: %v", err)))
	}

	return t.Transcribe(ctx, Request{
		Audio:           data,
		Filename:        filepath.Base(path),
		LanguageOptions: languageOptions,
		Region:          region,
	})
}

// Transcribe normalizes the audio, streams it to the provider and reconciles
// the returned events. It always returns exactly one result.
func (t *Transcriber) Transcribe(ctx context.Context, req Request) *Result {
	return t.finish(time.Now(), t.transcribe(ctx, req))
}

func (t *Transcriber) finish(start time.Time, res *Result) *Result {
	t.observer.ObserveResult(res.Status, res.ErrorKind, time.Since(start))
	return res
}

func (t *Transcriber) transcribe(ctx context.Context, req Request) *Result {
	log := t.logger.With(String("filename", req.Filename))

	codec := req.Codec
	if codec == "" {
		var err error
		codec, err = audio.CodecFromFilename(req.Filename)
		if err != nil {
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(req.Filename), "."))
			log.Warn("Rejected unsupported file format", String("extension", ext))
			return errorResult(err, fmt.Sprintf("Unsupported file format: %s", ext))
		}
	}

	languages, err := NormalizeLanguageOptions(req.LanguageOptions, t.cfg.DefaultLanguageOptions)
	if err != nil {
		return errorResult(err, err.Error())
	}

	if !t.provider.Streaming() {
		log.Warn("Provider does not support streaming transcription")
		return errorResult(ErrNotSupported, ErrNotSupported.Error())
	}

	canonical, err := t.normalizer.Normalize(req.Audio, codec)
	if err != nil {
		log.Error("Failed to normalize audio", Error(err))
		return errorResult(err, fmt.Sprintf("Transcription failed: %v", err))
	}
	loudness := canonical.Loudness()
	if loudness.Warning != "" {
		t.observer.LoudnessFallback()
	}

	region := req.Region
	if region == "" {
		region = t.cfg.Region
	}

	log.Info("Starting streaming transcription",
		String("codec", string(codec)),
		String("region", region),
		logger.Strings("language_options", languages),
		Duration("audio_duration", canonical.Duration()))

	transcript, err := t.stream(ctx, canonical, SessionConfig{
		Region:           region,
		LanguageOptions:  languages,
		IdentifyLanguage: true,
		SampleRate:       audio.CanonicalSampleRate,
		Encoding:         "pcm",
	})
	if err != nil {
		var res *Result
		if errors.Is(err, ErrTimeout) {
			log.Warn("Transcription timed out", Duration("timeout", t.cfg.Timeout))
			res = errorResult(err, timeoutMessage(t.cfg.Timeout))
		} else {
			log.Error("Streaming transcription failed", Error(err))
			res = errorResult(err, fmt.Sprintf("Transcription failed: %v", err))
		}
		res.Loudness = &loudness
		return res
	}

	return t.assemble(log, codec, transcript, loudness)
}

// stream runs the upload and reconcile goroutines over one session and joins them
func (t *Transcriber) stream(ctx context.Context, canonical *audio.CanonicalAudio, sc SessionConfig) (Transcript, error) {
	runCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	session, err := t.provider.Open(runCtx, sc)
	if err != nil {
		if timedOut(ctx, runCtx) {
			return Transcript{}, fmt.Errorf("%w: opening session", ErrTimeout)
		}
		if KindOf(err) == KindInternal {
			err = fmt.Errorf("%w: opening session: %w", ErrTransport, err)
		}
		return Transcript{}, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			t.logger.Debug("Error closing session", Error(err))
		}
	}()

	uploader := NewUploader(UploaderConfig{
		FrameSize:     t.cfg.FrameSize,
		FrameInterval: t.cfg.FrameInterval,
		FlushDelay:    t.cfg.FlushDelay,
	}, t.observer, t.logger)
	reconciler := NewReconciler(t.observer, t.logger)

	g, gctx := errgroup.WithContext(runCtx)

	// Closing the session unblocks any pending read or write once either side
	// fails or the deadline expires.
	stop := context.AfterFunc(gctx, func() { session.Close() })
	defer stop()

	g.Go(func() error {
		return uploader.Upload(gctx, session, canonical)
	})
	g.Go(func() error {
		return reconciler.Run(gctx, session)
	})

	err = g.Wait()
	if timedOut(ctx, runCtx) {
		return Transcript{}, fmt.Errorf("%w after %s", ErrTimeout, t.cfg.Timeout)
	}
	if err != nil {
		return Transcript{}, err
	}

	reconciler.Finalize()
	return reconciler.Transcript(), nil
}

// timedOut reports whether runCtx hit its own deadline rather than the caller cancelling
func timedOut(parent, runCtx context.Context) bool {
	return errors.Is(runCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil
}

func (t *Transcriber) assemble(log *logger.Logger, codec audio.Codec, tr Transcript, loudness audio.LoudnessReport) *Result {
	text := tr.Text
	if text == "" {
		if tr.LanguageCode != "" {
			text = fmt.Sprintf("[No speech detected in %s audio]", tr.LanguageCode)
		} else {
			text = "[No speech detected]"
		}
		log.Warn("No speech detected in audio", String("language_code", tr.LanguageCode))
	}

	var lang *string
	detected := "unknown"
	if tr.LanguageCode != "" {
		l := tr.LanguageCode
		lang = &l
		detected = l
	}

	log.Info("Transcription complete",
		String("language_code", detected),
		Int("segments", len(tr.Segments)),
		Int("transcript_length", len(text)))

	return &Result{
		Status:       StatusSuccess,
		Message:      fmt.Sprintf("Successfully transcribed %s audio file. Detected language: %s", strings.ToUpper(string(codec)), detected),
		Transcript:   text,
		LanguageCode: lang,
		Confidence:   tr.Confidence,
		Segments:     tr.Segments,
		Loudness:     &loudness,
	}
}

func timeoutMessage(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("Transcription timed out after %ds", int(d/time.Second))
	}
	return fmt.Sprintf("Transcription timed out after %v", d)
}

func errorResult(err error, message string) *Result {
	return &Result{
		Status:    StatusError,
		Message:   message,
		Segments:  []Segment{},
		ErrorKind: KindOf(err),
	}
}
