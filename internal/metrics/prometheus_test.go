package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yegors/scribe/internal/transcription"
)

var _ transcription.Observer = (*Metrics)(nil)

func TestObserverMethods(t *testing.T) {
	m := NewMetrics()

	m.ObserveResult("success", "", 2*time.Second)
	m.ObserveResult("error", "timeout", time.Minute)
	m.FrameSent()
	m.FrameSent()
	m.EventReceived("final")
	m.LoudnessFallback()

	if got := testutil.ToFloat64(m.Transcriptions.WithLabelValues("error", "timeout")); got != 1 {
		t.Errorf("expected 1 timeout, got %v", got)
	}
	if got := testutil.ToFloat64(m.FramesSent); got != 2 {
		t.Errorf("expected 2 frames, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecognitionEvents.WithLabelValues("final")); got != 1 {
		t.Errorf("expected 1 final event, got %v", got)
	}
	if got := testutil.ToFloat64(m.LoudnessFallbacks); got != 1 {
		t.Errorf("expected 1 fallback, got %v", got)
	}
}

func TestInstancesDoNotConflict(t *testing.T) {
	// each instance owns its registry, so creating two must not panic
	NewMetrics()
	NewMetrics()
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.FrameSent()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "scribe_audio_frames_sent_total 1") {
		t.Errorf("metrics output missing frame counter:\n%s", body)
	}
}
