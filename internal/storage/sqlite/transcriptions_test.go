package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/pkg/logger"
)

func newTestStorage(t *testing.T) *TranscriptionStorage {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "scribe.db"), logger.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	storage, err := NewTranscriptionStorage(db, logger.NewNop())
	if err != nil {
		t.Fatalf("NewTranscriptionStorage failed: %v", err)
	}
	return storage
}

func ptr[T any](v T) *T { return &v }

func TestStoreAndGetResult(t *testing.T) {
	s := newTestStorage(t)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	record := &TranscriptionRecord{
		ID:        "job-1",
		CreatedAt: created,
		Filename:  "meeting.mp3",
		Result: transcription.Result{
			Status:       transcription.StatusSuccess,
			Message:      "Successfully transcribed MP3 audio file. Detected language: en-US",
			Transcript:   "hello world",
			LanguageCode: ptr("en-US"),
			Confidence:   ptr(0.92),
			Segments: []transcription.Segment{
				{Text: "hello world", Confidence: ptr(0.92), StartTime: ptr(0.0), EndTime: ptr(1.2)},
			},
		},
	}
	if err := s.StoreResult(record); err != nil {
		t.Fatalf("StoreResult failed: %v", err)
	}

	got, err := s.GetResult("job-1")
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if !got.CreatedAt.Equal(created) || got.Filename != "meeting.mp3" || got.Transcript != "hello world" {
		t.Errorf("unexpected record %+v", got)
	}
	if got.LanguageCode == nil || *got.LanguageCode != "en-US" || got.Confidence == nil || *got.Confidence != 0.92 {
		t.Errorf("unexpected nullable fields: %v %v", got.LanguageCode, got.Confidence)
	}
	if len(got.Segments) != 1 || *got.Segments[0].EndTime != 1.2 {
		t.Errorf("unexpected segments %+v", got.Segments)
	}
}

func TestStoreErrorResult(t *testing.T) {
	s := newTestStorage(t)
	err := s.StoreResult(&TranscriptionRecord{
		ID:        "job-err",
		CreatedAt: time.Now(),
		Filename:  "clip.mp4",
		Result: transcription.Result{
			Status:    transcription.StatusError,
			Message:   "Unsupported file format: mp4",
			ErrorKind: transcription.KindUnsupportedFormat,
		},
	})
	if err != nil {
		t.Fatalf("StoreResult failed: %v", err)
	}

	got, err := s.GetResult("job-err")
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if got.LanguageCode != nil || got.Confidence != nil {
		t.Error("expected nil language and confidence")
	}
	if got.ErrorKind != transcription.KindUnsupportedFormat || len(got.Segments) != 0 {
		t.Errorf("unexpected record %+v", got)
	}
}

func TestGetResultsNewestFirst(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		err := s.StoreResult(&TranscriptionRecord{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Filename:  id + ".wav",
			Result:    transcription.Result{Status: transcription.StatusSuccess},
		})
		if err != nil {
			t.Fatalf("StoreResult(%s) failed: %v", id, err)
		}
	}

	page, err := s.GetResults(2, 0)
	if err != nil {
		t.Fatalf("GetResults failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "c" || page[1].ID != "b" {
		t.Errorf("unexpected first page %v", ids(page))
	}

	page, err = s.GetResults(2, 2)
	if err != nil {
		t.Fatalf("GetResults failed: %v", err)
	}
	if len(page) != 1 || page[0].ID != "a" {
		t.Errorf("unexpected second page %v", ids(page))
	}
}

func TestGetResultNotFound(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.GetResult("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func ids(records []*TranscriptionRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
