package awstranscribe

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming/types"

	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/pkg/logger"
)

// eventStream is the subset of the SDK's bidirectional stream the session uses
type eventStream interface {
	Send(ctx context.Context, event types.AudioStream) error
	Events() <-chan types.TranscriptResultStream
	Close() error
	Err() error
}

// Session adapts a Transcribe event stream to transcription.Session
type Session struct {
	stream eventStream
	logger *logger.Logger

	events    chan transcription.Event
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	errMu sync.Mutex
	err   error
}

func newSession(stream eventStream, log *logger.Logger) *Session {
	s := &Session{
		stream: stream,
		logger: log,
		events: make(chan transcription.Event),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *Session) SendAudio(ctx context.Context, frame []byte) error {
	return s.send(ctx, frame)
}

// EndStream sends the empty audio event that marks the end of input
func (s *Session) EndStream(ctx context.Context) error {
	return s.send(ctx, []byte{})
}

func (s *Session) send(ctx context.Context, chunk []byte) error {
	select {
	case <-s.done:
		return transcription.ErrSessionClosed
	default:
	}

	err := s.stream.Send(ctx, &types.AudioStreamMemberAudioEvent{
		Value: types.AudioEvent{AudioChunk: chunk},
	})
	if err != nil {
		select {
		case <-s.done:
			return transcription.ErrSessionClosed
		default:
		}
		return err
	}
	return nil
}

func (s *Session) Events() <-chan transcription.Event {
	return s.events
}

func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.stream.Close()
	})
	return s.closeErr
}

func (s *Session) readLoop() {
	defer close(s.events)

	for raw := range s.stream.Events() {
		switch ev := raw.(type) {
		case *types.TranscriptResultStreamMemberTranscriptEvent:
			if ev.Value.Transcript == nil {
				continue
			}
			for _, result := range ev.Value.Transcript.Results {
				for _, out := range decodeResult(result) {
					select {
					case s.events <- out:
					case <-s.done:
						return
					}
				}
			}
		default:
			select {
			case s.events <- transcription.Event{
				Kind:   transcription.EventMalformed,
				Detail: fmt.Sprintf("unexpected stream event %T", raw),
			}:
			case <-s.done:
				return
			}
		}
	}

	if err := s.stream.Err(); err != nil {
		select {
		case <-s.done:
			// closed by us, the stream error is the cancellation
			return
		default:
		}
		s.errMu.Lock()
		s.err = classify(err)
		s.errMu.Unlock()
		s.logger.Warn("Transcribe stream ended with error", logger.Error(err))
	}
}

// classify tags a stream error as a service fault unless the request was cancelled
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", transcription.ErrServiceFault, err)
}
