package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yegors/scribe/pkg/logger"
)

// Transcript is a snapshot of reconciled recognition output
type Transcript struct {
	Text         string
	LanguageCode string
	Confidence   *float64
	Segments     []Segment
}

// transcriptState is only mutated by the reconciler
type transcriptState struct {
	segments     []Segment
	partial      string
	languageCode string
	confidence   *float64
}

// Reconciler folds recognition events into one transcript
type Reconciler struct {
	state    transcriptState
	observer Observer
	logger   *logger.Logger
}

// NewReconciler creates a new reconciler with empty state
func NewReconciler(observer Observer, log *logger.Logger) *Reconciler {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Reconciler{
		observer: observer,
		logger:   log.Named("reconciler"),
	}
}

// Run applies events until the session's event stream closes or ctx is done.
// A session that ended with an error is reported as a service fault unless it
// already carries a transport classification.
func (r *Reconciler) Run(ctx context.Context, s Session) error {
	events := s.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return r.streamEnded(s.Err())
			}
			r.Apply(ev)
		}
	}
}

func (r *Reconciler) streamEnded(err error) error {
	if err == nil {
		r.logger.Debug("Recognition stream ended",
			Int("segments", len(r.state.segments)))
		return nil
	}
	if errors.Is(err, ErrServiceFault) || errors.Is(err, ErrTransport) || errors.Is(err, ErrSessionClosed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrServiceFault, err)
}

// Apply folds a single event into the transcript state
func (r *Reconciler) Apply(ev Event) {
	r.observer.EventReceived(ev.Kind.String())

	switch ev.Kind {
	case EventPartial:
		if ev.LanguageCode != "" {
			r.state.languageCode = ev.LanguageCode
		}
		if strings.TrimSpace(ev.Text) == "" {
			return
		}
		r.state.partial = ev.Text
		r.logger.Debug("Partial transcript", String("text", ev.Text))

	case EventFinal:
		if ev.LanguageCode != "" {
			r.state.languageCode = ev.LanguageCode
		}
		if strings.TrimSpace(ev.Text) == "" {
			return
		}
		r.state.segments = append(r.state.segments, Segment{
			Text:       ev.Text,
			Confidence: ev.Confidence,
			StartTime:  ev.StartTime,
			EndTime:    ev.EndTime,
		})
		if ev.Confidence != nil {
			c := *ev.Confidence
			r.state.confidence = &c
		}
		r.state.partial = ""
		r.logger.Debug("Final transcript", String("text", ev.Text))

	case EventLanguage:
		if ev.LanguageCode == "" {
			return
		}
		r.state.languageCode = ev.LanguageCode
		r.logger.Debug("Language identified", String("language_code", ev.LanguageCode))

	case EventMalformed:
		r.logger.Warn("Skipping malformed recognition event", String("detail", ev.Detail))

	default:
		r.logger.Warn("Skipping event of unknown kind", Int("kind", int(ev.Kind)))
	}
}

// Finalize promotes a pending partial hypothesis to a segment when no final
// result arrived. It is a no-op if any segment exists.
func (r *Reconciler) Finalize() {
	if len(r.state.segments) > 0 || r.state.partial == "" {
		return
	}

	r.logger.Info("No final result received, using last partial transcript",
		String("text", r.state.partial))

	var conf *float64
	if r.state.confidence != nil {
		c := *r.state.confidence
		conf = &c
	}
	r.state.segments = append(r.state.segments, Segment{
		Text:       r.state.partial,
		Confidence: conf,
	})
	r.state.partial = ""
}

// Transcript returns a copy of the current state. Segment texts are kept
// as received; only the joined text is trimmed.
func (r *Reconciler) Transcript() Transcript {
	texts := make([]string, len(r.state.segments))
	for i, s := range r.state.segments {
		texts[i] = s.Text
	}

	segments := make([]Segment, len(r.state.segments))
	copy(segments, r.state.segments)

	var conf *float64
	if r.state.confidence != nil {
		c := *r.state.confidence
		conf = &c
	}

	return Transcript{
		Text:         strings.TrimSpace(strings.Join(texts, " ")),
		LanguageCode: r.state.languageCode,
		Confidence:   conf,
		Segments:     segments,
	}
}

// Partial returns the pending partial hypothesis, if any
func (r *Reconciler) Partial() string {
	return r.state.partial
}
