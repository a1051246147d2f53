package awstranscribe

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming/types"

	"github.com/yegors/scribe/internal/transcription"
)

// decodeResult converts one service result into recognition events.
// Language information comes first so it is applied before the text.
func decodeResult(r types.Result) []transcription.Event {
	var events []transcription.Event

	if lang := identifiedLanguage(r); lang != "" {
		events = append(events, transcription.Event{
			Kind:         transcription.EventLanguage,
			LanguageCode: lang,
		})
	}

	if len(r.Alternatives) == 0 {
		return append(events, transcription.Event{
			Kind:   transcription.EventMalformed,
			Detail: "result " + aws.ToString(r.ResultId) + " has no alternatives",
		})
	}

	alt := r.Alternatives[0]
	text := aws.ToString(alt.Transcript)

	if r.IsPartial {
		return append(events, transcription.Event{
			Kind:         transcription.EventPartial,
			Text:         text,
			LanguageCode: string(r.LanguageCode),
		})
	}

	start, end := r.StartTime, r.EndTime
	return append(events, transcription.Event{
		Kind:         transcription.EventFinal,
		Text:         text,
		Confidence:   meanConfidence(alt.Items),
		StartTime:    &start,
		EndTime:      &end,
		LanguageCode: string(r.LanguageCode),
	})
}

// identifiedLanguage prefers the result's language code and falls back to the
// best scored identification candidate.
func identifiedLanguage(r types.Result) string {
	if r.LanguageCode != "" {
		return string(r.LanguageCode)
	}

	var best types.LanguageWithScore
	for _, l := range r.LanguageIdentification {
		if best.LanguageCode == "" || l.Score > best.Score {
			best = l
		}
	}
	return string(best.LanguageCode)
}

// meanConfidence averages item confidences; nil when no item carries one
func meanConfidence(items []types.Item) *float64 {
	var sum float64
	var n int
	for _, it := range items {
		if it.Confidence == nil {
			continue
		}
		sum += *it.Confidence
		n++
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}
