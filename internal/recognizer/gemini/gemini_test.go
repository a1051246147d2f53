package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/pkg/logger"
)

type clientMessage struct {
	Setup *struct {
		Model                   string         `json:"model"`
		InputAudioTranscription map[string]any `json:"inputAudioTranscription"`
		SystemInstruction       struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
	} `json:"setup"`
	RealtimeInput *struct {
		Audio *struct {
			MimeType string `json:"mimeType"`
			Data     string `json:"data"`
		} `json:"audio"`
		AudioStreamEnd bool `json:"audioStreamEnd"`
	} `json:"realtimeInput"`
}

type serverRecord struct {
	key         string
	model       string
	instruction string
	mimeType    string
	audioBytes  int
	ended       bool
}

// newFakeLive accepts one session, collects audio until audioStreamEnd, then
// replays script. A non-zero closeCode closes the socket with that code.
func newFakeLive(t *testing.T, script []string, closeCode int) (*httptest.Server, <-chan serverRecord) {
	t.Helper()
	records := make(chan serverRecord, 1)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := serverRecord{key: r.URL.Query().Get("key")}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		sent := false
		report := func() {
			if !sent {
				sent = true
				records <- rec
			}
		}
		defer report()

		var setup clientMessage
		if err := conn.ReadJSON(&setup); err != nil || setup.Setup == nil {
			return
		}
		rec.model = setup.Setup.Model
		if parts := setup.Setup.SystemInstruction.Parts; len(parts) > 0 {
			rec.instruction = parts[0].Text
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete":{}}`))

		for !rec.ended {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.RealtimeInput == nil {
				continue
			}
			if a := msg.RealtimeInput.Audio; a != nil {
				rec.mimeType = a.MimeType
				b, _ := base64.StdEncoding.DecodeString(a.Data)
				rec.audioBytes += len(b)
			}
			rec.ended = msg.RealtimeInput.AudioStreamEnd
		}
		report()

		for _, m := range script {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if closeCode != 0 {
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, "quota exceeded"))
		}
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	return srv, records
}

func newTestProvider(url string) *Provider {
	return NewProvider(Config{
		URL:           "ws" + strings.TrimPrefix(url, "http"),
		APIKey:        "test-key",
		Model:         "live-test",
		EndStreamIdle: 200 * time.Millisecond,
	}, logger.NewNop())
}

func drain(t *testing.T, s transcription.Session) []transcription.Event {
	t.Helper()
	var out []transcription.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
}

func kinds(events []transcription.Event) string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Kind.String()
	}
	return strings.Join(names, ",")
}

func TestDecodeTurn(t *testing.T) {
	var dec turnDecoder

	out := dec.decode([]byte(`{"serverContent":{"inputTranscription":{"text":"selamat "}}}`))
	if len(out.events) != 1 || out.events[0].Text != "selamat " {
		t.Fatalf("unexpected first partial %+v", out.events)
	}
	out = dec.decode([]byte(`{"serverContent":{"inputTranscription":{"text":"pagi"},"turnComplete":true}}`))
	if kinds(out.events) != "partial,final" || !out.turnEnd {
		t.Fatalf("unexpected events %s (turnEnd %v)", kinds(out.events), out.turnEnd)
	}
	if out.events[1].Text != "selamat pagi" {
		t.Errorf("expected accumulated final, got %q", out.events[1].Text)
	}

	// next turn starts empty
	out = dec.decode([]byte(`{"serverContent":{"turnComplete":true}}`))
	if len(out.events) != 0 || !out.turnEnd {
		t.Errorf("empty turn should yield no events, got %s", kinds(out.events))
	}
}

func TestDecodeControlAndMalformed(t *testing.T) {
	var dec turnDecoder

	if out := dec.decode([]byte(`{"setupComplete":{}}`)); len(out.events) != 0 {
		t.Errorf("setupComplete should be ignored")
	}
	if out := dec.decode([]byte(`{"goAway":{"timeLeft":"10s"}}`)); out.goAway != "10s" {
		t.Errorf("expected goAway time, got %q", out.goAway)
	}
	for _, raw := range []string{`not json`, `{"somethingElse":{}}`} {
		out := dec.decode([]byte(raw))
		if len(out.events) != 1 || out.events[0].Kind != transcription.EventMalformed {
			t.Errorf("%s: expected malformed event, got %+v", raw, out.events)
		}
	}
}

func TestSessionRoundTrip(t *testing.T) {
	srv, records := newFakeLive(t, []string{
		`{"serverContent":{"inputTranscription":{"text":"good "}}}`,
		`{"serverContent":{"inputTranscription":{"text":"morning"}}}`,
		`{"serverContent":{"modelTurn":{"parts":[{"text":"ignored"}]}}}`,
		`{"serverContent":{"turnComplete":true}}`,
	}, 0)

	ctx := context.Background()
	s, err := newTestProvider(srv.URL).Open(ctx, transcription.SessionConfig{
		LanguageOptions: []string{"en-US", "id-ID"},
		SampleRate:      16000,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	for range 2 {
		if err := s.SendAudio(ctx, make([]byte, 64)); err != nil {
			t.Fatalf("SendAudio failed: %v", err)
		}
	}
	if err := s.EndStream(ctx); err != nil {
		t.Fatalf("EndStream failed: %v", err)
	}

	events := drain(t, s)
	if err := s.Err(); err != nil {
		t.Errorf("expected clean end, got %v", err)
	}
	if got := kinds(events); got != "partial,partial,final" {
		t.Fatalf("unexpected event sequence %s", got)
	}
	if events[2].Text != "good morning" {
		t.Errorf("unexpected final %q", events[2].Text)
	}

	rec := <-records
	if rec.key != "test-key" || rec.model != "models/live-test" {
		t.Errorf("unexpected key/model %q/%q", rec.key, rec.model)
	}
	if rec.mimeType != "audio/pcm;rate=16000" || rec.audioBytes != 128 {
		t.Errorf("unexpected audio %q %d", rec.mimeType, rec.audioBytes)
	}
	if !strings.Contains(rec.instruction, "en-US, id-ID") {
		t.Errorf("language options missing from instruction %q", rec.instruction)
	}
}

func TestSessionEndsWhenIdleAfterAudio(t *testing.T) {
	srv, _ := newFakeLive(t, nil, 0)

	ctx := context.Background()
	s, err := newTestProvider(srv.URL).Open(ctx, transcription.SessionConfig{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.EndStream(ctx); err != nil {
		t.Fatalf("EndStream failed: %v", err)
	}
	if events := drain(t, s); len(events) != 0 {
		t.Errorf("expected no events, got %s", kinds(events))
	}
	if err := s.Err(); err != nil {
		t.Errorf("idle end should be clean, got %v", err)
	}
}

func TestSessionIdleExtendsWhileOutputArrives(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.RealtimeInput != nil && msg.RealtimeInput.AudioStreamEnd {
				break
			}
		}
		// each gap is shorter than the idle period, their sum is longer
		for _, word := range []string{"one ", "two ", "three ", "four"} {
			time.Sleep(80 * time.Millisecond)
			m := `{"serverContent":{"inputTranscription":{"text":"` + word + `"}}}`
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	s, err := newTestProvider(srv.URL).Open(ctx, transcription.SessionConfig{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.EndStream(ctx); err != nil {
		t.Fatalf("EndStream failed: %v", err)
	}
	events := drain(t, s)
	if got := kinds(events); got != "partial,partial,partial,partial" {
		t.Fatalf("unexpected event sequence %s", got)
	}
	if events[3].Text != "one two three four" {
		t.Errorf("unexpected last partial %q", events[3].Text)
	}
	if err := s.Err(); err != nil {
		t.Errorf("idle end should be clean, got %v", err)
	}
}

func TestSessionServiceClose(t *testing.T) {
	srv, _ := newFakeLive(t, nil, websocket.ClosePolicyViolation)

	ctx := context.Background()
	s, err := newTestProvider(srv.URL).Open(ctx, transcription.SessionConfig{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.EndStream(ctx); err != nil {
		t.Fatalf("EndStream failed: %v", err)
	}
	drain(t, s)
	if !errors.Is(s.Err(), transcription.ErrServiceFault) {
		t.Errorf("expected service fault, got %v", s.Err())
	}
}

func TestSendAfterClose(t *testing.T) {
	srv, _ := newFakeLive(t, nil, 0)

	ctx := context.Background()
	s, err := newTestProvider(srv.URL).Open(ctx, transcription.SessionConfig{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Close()

	if err := s.SendAudio(ctx, []byte{1, 2}); !errors.Is(err, transcription.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestOpenDialFailure(t *testing.T) {
	p := NewProvider(Config{URL: "ws://127.0.0.1:1/live", APIKey: "k"}, logger.NewNop())
	_, err := p.Open(context.Background(), transcription.SessionConfig{SampleRate: 16000})
	if !errors.Is(err, transcription.ErrTransport) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestSetupMessageShape(t *testing.T) {
	p := NewProvider(Config{APIKey: "k"}, logger.NewNop())
	raw, err := json.Marshal(p.setupMessage(transcription.SessionConfig{}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"inputAudioTranscription":{}`) {
		t.Errorf("setup must request input transcription: %s", raw)
	}
	if !strings.Contains(string(raw), `"model":"models/`+DefaultModel+`"`) {
		t.Errorf("unexpected default model: %s", raw)
	}
}
