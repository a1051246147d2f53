package awstranscribe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming/types"
	"github.com/aws/smithy-go"

	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/pkg/logger"
)

type fakeStream struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
	err    error
	events chan types.TranscriptResultStream
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan types.TranscriptResultStream, 16)}
}

func (f *fakeStream) Send(ctx context.Context, event types.AudioStream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("stream closed")
	}
	audio := event.(*types.AudioStreamMemberAudioEvent)
	f.sent = append(f.sent, audio.Value.AudioChunk)
	return nil
}

func (f *fakeStream) Events() <-chan types.TranscriptResultStream { return f.events }

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStream) Err() error { return f.err }

func (f *fakeStream) emit(results ...types.Result) {
	f.events <- &types.TranscriptResultStreamMemberTranscriptEvent{
		Value: types.TranscriptEvent{Transcript: &types.Transcript{Results: results}},
	}
}

func collect(t *testing.T, s transcription.Session) []transcription.Event {
	t.Helper()
	var out []transcription.Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatal("timed out draining events")
		}
	}
}

func TestSessionStreamsAudioAndEvents(t *testing.T) {
	stream := newFakeStream()
	s := newSession(stream, logger.NewNop())
	ctx := context.Background()

	if err := s.SendAudio(ctx, []byte{1, 2, 3}); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}
	if err := s.EndStream(ctx); err != nil {
		t.Fatalf("EndStream failed: %v", err)
	}

	stream.emit(types.Result{IsPartial: true, Alternatives: []types.Alternative{{Transcript: aws.String("hel")}}})
	stream.emit(types.Result{Alternatives: []types.Alternative{{Transcript: aws.String("hello")}}})
	close(stream.events)

	events := collect(t, s)
	if len(events) != 2 || events[0].Kind != transcription.EventPartial || events[1].Kind != transcription.EventFinal {
		t.Fatalf("unexpected events %+v", events)
	}
	if s.Err() != nil {
		t.Errorf("expected clean end, got %v", s.Err())
	}

	stream.mu.Lock()
	defer stream.mu.Unlock()
	if len(stream.sent) != 2 || len(stream.sent[1]) != 0 {
		t.Errorf("expected audio chunk then empty end marker, got %v", stream.sent)
	}
}

func TestSessionStreamError(t *testing.T) {
	stream := newFakeStream()
	stream.err = errors.New("BadRequestException: audio too short")
	s := newSession(stream, logger.NewNop())
	close(stream.events)

	collect(t, s)
	if !errors.Is(s.Err(), transcription.ErrServiceFault) {
		t.Errorf("expected service fault, got %v", s.Err())
	}
}

func TestSessionClose(t *testing.T) {
	stream := newFakeStream()
	s := newSession(stream, logger.NewNop())

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	s.Close()

	if err := s.SendAudio(context.Background(), []byte{1}); !errors.Is(err, transcription.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	close(stream.events)
	collect(t, s)
}

func TestProviderOpenBuildsRequest(t *testing.T) {
	stream := newFakeStream()
	var got *transcribestreaming.StartStreamTranscriptionInput
	var gotRegion string
	p := newProvider(func(ctx context.Context, region string, in *transcribestreaming.StartStreamTranscriptionInput) (eventStream, error) {
		got, gotRegion = in, region
		return stream, nil
	}, logger.NewNop())

	s, err := p.Open(context.Background(), transcription.SessionConfig{
		Region:           "ap-southeast-1",
		LanguageOptions:  []string{"en-US", "id-ID"},
		IdentifyLanguage: true,
		SampleRate:       16000,
		Encoding:         "pcm",
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if gotRegion != "ap-southeast-1" {
		t.Errorf("unexpected region %q", gotRegion)
	}
	if got.MediaEncoding != types.MediaEncodingPcm || aws.ToInt32(got.MediaSampleRateHertz) != 16000 {
		t.Errorf("unexpected media settings %+v", got)
	}
	if !got.IdentifyLanguage || aws.ToString(got.LanguageOptions) != "en-US,id-ID" {
		t.Errorf("unexpected language settings %+v", got)
	}
	close(stream.events)
}

func TestProviderOpenClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"api error", &smithy.GenericAPIError{Code: "LimitExceededException", Message: "too many streams"}, transcription.ErrServiceFault},
		{"network error", errors.New("dial tcp: no route to host"), transcription.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(func(context.Context, string, *transcribestreaming.StartStreamTranscriptionInput) (eventStream, error) {
				return nil, tt.err
			}, logger.NewNop())

			if _, err := p.Open(context.Background(), transcription.SessionConfig{SampleRate: 16000}); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
