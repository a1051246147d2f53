package transcription

// EventKind tags a recognition event
type EventKind int

const (
	EventPartial EventKind = iota + 1
	EventFinal
	EventLanguage
	EventMalformed
)

func (k EventKind) String() string {
	switch k {
	case EventPartial:
		return "partial"
	case EventFinal:
		return "final"
	case EventLanguage:
		return "language"
	case EventMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Event is a recognition event decoded at the session boundary.
// Which fields are meaningful depends on Kind:
//   - EventPartial: Text, LanguageCode
//   - EventFinal: Text, Confidence, StartTime, EndTime, LanguageCode
//   - EventLanguage: LanguageCode
//   - EventMalformed: Detail
type Event struct {
	Kind         EventKind
	Text         string
	Confidence   *float64
	StartTime    *float64
	EndTime      *float64
	LanguageCode string
	Detail       string
}
