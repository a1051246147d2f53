package transcription

import (
	"fmt"
	"strings"
)

// MaxLanguageOptions is the service limit for automatic language identification
const MaxLanguageOptions = 7

// Language is a catalogue entry
type Language struct {
	Code string
	Name string
}

var supportedLanguages = []Language{
	{"en-US", "English (United States)"},
	{"id-ID", "Indonesian (Indonesia)"},
	{"zh-CN", "Chinese (Simplified)"},
	{"ja-JP", "Japanese"},
	{"ko-KR", "Korean"},
	{"th-TH", "Thai"},
	{"vi-VN", "Vietnamese"},
}

// SupportedLanguages returns the catalogue languages in display order
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// ParseLanguageOptions splits a comma separated list of language tags
func ParseLanguageOptions(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// NormalizeLanguageOptions trims tags, drops blanks and duplicates, and falls
// back to defaults when nothing is left.
func NormalizeLanguageOptions(opts, defaults []string) ([]string, error) {
	seen := make(map[string]bool, len(opts))
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}

	if len(out) == 0 {
		out = append(out, defaults...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no language options", ErrInvalidRequest)
	}
	if len(out) > MaxLanguageOptions {
		return nil, fmt.Errorf("%w: %d language options given, at most %d allowed",
			ErrInvalidRequest, len(out), MaxLanguageOptions)
	}
	return out, nil
}
