package transcription

import (
	"time"

	"github.com/yegors/scribe/internal/audio"
)

// Result status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Defaults carried over from the recognition service integration
const (
	DefaultRegion        = "ap-southeast-1"
	DefaultTimeout       = 60 * time.Second
	DefaultFrameSize     = 4096
	DefaultFrameInterval = 50 * time.Millisecond
	DefaultFlushDelay    = time.Second
)

// DefaultLanguageOptions returns the language tags used when a request names none
func DefaultLanguageOptions() []string {
	return []string{"en-US", "id-ID"}
}

// Segment is one finalized utterance
type Segment struct {
	Text       string   `json:"transcript"`
	Confidence *float64 `json:"confidence"`
	StartTime  *float64 `json:"start_time"` // seconds
	EndTime    *float64 `json:"end_time"`   // seconds
}

// Result is the terminal outcome of one transcription request
type Result struct {
	Status       string                `json:"status"`
	Message      string                `json:"message"`
	Transcript   string                `json:"transcript"`
	LanguageCode *string               `json:"language_code"`
	Confidence   *float64              `json:"confidence"`
	Segments     []Segment             `json:"segments"`
	Loudness     *audio.LoudnessReport `json:"loudness,omitempty"`
	ErrorKind    string                `json:"error_kind,omitempty"`
}

// Request describes one file to transcribe
type Request struct {
	Audio           []byte
	Filename        string
	Codec           audio.Codec // derived from Filename when empty
	LanguageOptions []string
	Region          string
}

// Config represents the configuration for the transcription pipeline
type Config struct {
	FrameSize              int
	FrameInterval          time.Duration
	FlushDelay             time.Duration
	Timeout                time.Duration
	Region                 string
	DefaultLanguageOptions []string
}

// DefaultConfig returns the pipeline defaults
func DefaultConfig() Config {
	return Config{
		FrameSize:              DefaultFrameSize,
		FrameInterval:          DefaultFrameInterval,
		FlushDelay:             DefaultFlushDelay,
		Timeout:                DefaultTimeout,
		Region:                 DefaultRegion,
		DefaultLanguageOptions: DefaultLanguageOptions(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FrameSize <= 0 {
		c.FrameSize = d.FrameSize
	}
	if c.FrameInterval < 0 {
		c.FrameInterval = d.FrameInterval
	}
	if c.FlushDelay < 0 {
		c.FlushDelay = d.FlushDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Region == "" {
		c.Region = d.Region
	}
	if len(c.DefaultLanguageOptions) == 0 {
		c.DefaultLanguageOptions = d.DefaultLanguageOptions
	}
	return c
}
