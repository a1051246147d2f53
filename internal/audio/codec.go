package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for containers other than MP3 and WAV
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrDecode is returned when a payload is structurally invalid for its codec
	ErrDecode = errors.New("audio decode failed")
)

// Codec identifies a supported input container
type Codec string

const (
	CodecMP3 Codec = "mp3"
	CodecWAV Codec = "wav"
)

// SupportedCodecs returns the accepted input containers in catalogue order
func SupportedCodecs() []Codec {
	return []Codec{CodecMP3, CodecWAV}
}

// ParseCodec maps a format name or file extension ("mp3", ".WAV") to a Codec
func ParseCodec(name string) (Codec, error) {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	for _, c := range SupportedCodecs() {
		if ext == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// CodecFromFilename derives the codec from a file name's extension
func CodecFromFilename(filename string) (Codec, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, "(no extension)")
	}
	return ParseCodec(ext)
}
