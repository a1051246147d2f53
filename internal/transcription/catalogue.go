package transcription

import "github.com/yegors/scribe/internal/audio"

const catalogueMessage = "These are the supported languages and formats for audio transcription"

// CatalogueResponse lists the languages and formats the service accepts
type CatalogueResponse struct {
	Status             string            `json:"status"`
	SupportedLanguages map[string]string `json:"supported_languages"`
	SupportedFormats   []string          `json:"supported_formats"`
	DefaultOptions     []string          `json:"default_options"`
	Message            string            `json:"message"`
}

// Catalogue builds the catalogue from constants. Its JSON encoding is stable
// across calls since map keys are serialized in sorted order.
func Catalogue() *CatalogueResponse {
	langs := make(map[string]string, len(supportedLanguages))
	for _, l := range supportedLanguages {
		langs[l.Code] = l.Name
	}

	codecs := audio.SupportedCodecs()
	formats := make([]string, len(codecs))
	for i, c := range codecs {
		formats[i] = string(c)
	}

	return &CatalogueResponse{
		Status:             StatusSuccess,
		SupportedLanguages: langs,
		SupportedFormats:   formats,
		DefaultOptions:     DefaultLanguageOptions(),
		Message:            catalogueMessage,
	}
}
