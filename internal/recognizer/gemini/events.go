package gemini

import (
	"encoding/json"
	"strings"

	"github.com/yegors/scribe/internal/transcription"
)

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete"`
	ServerContent *serverContent   `json:"serverContent"`
	GoAway        *struct {
		TimeLeft string `json:"timeLeft"`
	} `json:"goAway"`
	UsageMetadata *json.RawMessage `json:"usageMetadata"`
}

type serverContent struct {
	InputTranscription *struct {
		Text string `json:"text"`
	} `json:"inputTranscription"`
	ModelTurn    *json.RawMessage `json:"modelTurn"`
	TurnComplete bool             `json:"turnComplete"`
	Interrupted  bool             `json:"interrupted"`
}

// decoded is the outcome of one server message
type decoded struct {
	events  []transcription.Event
	goAway  string // non-empty when the service announced a disconnect
	turnEnd bool
}

// turnDecoder accumulates input transcription chunks until the turn completes
type turnDecoder struct {
	text strings.Builder
}

func (d *turnDecoder) decode(raw []byte) decoded {
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return decoded{events: []transcription.Event{malformed("invalid JSON: " + err.Error())}}
	}

	var out decoded
	switch {
	case msg.ServerContent != nil:
		sc := msg.ServerContent
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			d.text.WriteString(sc.InputTranscription.Text)
			out.events = append(out.events, transcription.Event{
				Kind: transcription.EventPartial,
				Text: d.text.String(),
			})
		}
		if sc.TurnComplete {
			out.turnEnd = true
			if text := strings.TrimSpace(d.text.String()); text != "" {
				out.events = append(out.events, transcription.Event{
					Kind: transcription.EventFinal,
					Text: text,
				})
			}
			d.text.Reset()
		}
	case msg.GoAway != nil:
		out.goAway = msg.GoAway.TimeLeft
		if out.goAway == "" {
			out.goAway = "unspecified"
		}
	case msg.SetupComplete != nil, msg.UsageMetadata != nil:
		// nothing for the transcript
	default:
		out.events = append(out.events, malformed("unrecognized message"))
	}
	return out
}

func malformed(detail string) transcription.Event {
	return transcription.Event{Kind: transcription.EventMalformed, Detail: detail}
}
