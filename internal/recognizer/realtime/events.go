package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/yegors/scribe/internal/transcription"
)

// Server event types
const (
	typeTranscriptionDelta     = "conversation.item.input_audio_transcription.delta"
	typeTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	typeLanguageIdentified     = "language.identified"
	typeError                  = "error"
	typeSessionClosed          = "session.closed"
)

// Control events that carry nothing for the transcript
var ignoredTypes = map[string]bool{
	"session.created":                   true,
	"session.updated":                   true,
	"transcription_session.created":     true,
	"transcription_session.updated":     true,
	"input_audio_buffer.committed":      true,
	"input_audio_buffer.speech_started": true,
	"input_audio_buffer.speech_stopped": true,
	"conversation.item.created":         true,
}

type serverEvent struct {
	Type       string   `json:"type"`
	ItemID     string   `json:"item_id"`
	Delta      string   `json:"delta"`
	Transcript string   `json:"transcript"`
	Confidence *float64 `json:"confidence"`
	Start      *float64 `json:"start"`
	End        *float64 `json:"end"`
	Language   string   `json:"language"`
	Error      *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decoded is the outcome of decoding one server message
type decoded struct {
	event *transcription.Event
	fault error // service reported an error, stream ends
	end   bool  // service closed the session
}

// eventDecoder turns server messages into recognition events. Deltas are
// accumulated per item so every partial carries the full hypothesis.
type eventDecoder struct {
	partials map[string]string
}

func newEventDecoder() *eventDecoder {
	return &eventDecoder{partials: make(map[string]string)}
}

func (d *eventDecoder) decode(raw []byte) decoded {
	var ev serverEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return malformed(fmt.Sprintf("invalid JSON: %v", err))
	}

	switch ev.Type {
	case typeTranscriptionDelta:
		d.partials[ev.ItemID] += ev.Delta
		return decoded{event: &transcription.Event{
			Kind: transcription.EventPartial,
			Text: d.partials[ev.ItemID],
		}}

	case typeTranscriptionCompleted:
		delete(d.partials, ev.ItemID)
		return decoded{event: &transcription.Event{
			Kind:         transcription.EventFinal,
			Text:         ev.Transcript,
			Confidence:   ev.Confidence,
			StartTime:    ev.Start,
			EndTime:      ev.End,
			LanguageCode: ev.Language,
		}}

	case typeLanguageIdentified:
		if ev.Language == "" {
			return malformed("language event without language")
		}
		return decoded{event: &transcription.Event{
			Kind:         transcription.EventLanguage,
			LanguageCode: ev.Language,
		}}

	case typeError:
		if ev.Error == nil {
			return decoded{fault: fmt.Errorf("%w: unspecified error", transcription.ErrServiceFault)}
		}
		return decoded{fault: fmt.Errorf("%w: %s: %s", transcription.ErrServiceFault, ev.Error.Code, ev.Error.Message)}

	case typeSessionClosed:
		return decoded{end: true}

	case "":
		return malformed("event missing type field")

	default:
		if ignoredTypes[ev.Type] {
			return decoded{}
		}
		return malformed("unknown event type " + ev.Type)
	}
}

func malformed(detail string) decoded {
	return decoded{event: &transcription.Event{
		Kind:   transcription.EventMalformed,
		Detail: detail,
	}}
}
