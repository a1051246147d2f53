package audio

import (
	"errors"
	"testing"
)

func TestParseCodec(t *testing.T) {
	cases := map[string]Codec{
		"mp3":  CodecMP3,
		".WAV": CodecWAV,
		" Mp3": CodecMP3,
	}
	for in, want := range cases {
		got, err := ParseCodec(in)
		if err != nil {
			t.Fatalf("ParseCodec(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseCodec(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCodecFromFilenameRejectsUnknown(t *testing.T) {
	for _, name := range []string{"clip.mp4", "clip.flac", "noextension"} {
		if _, err := CodecFromFilename(name); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("CodecFromFilename(%q): expected ErrUnsupportedFormat, got %v", name, err)
		}
	}
}

func TestCodecFromFilename(t *testing.T) {
	got, err := CodecFromFilename("/tmp/Meeting.Recording.MP3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != CodecMP3 {
		t.Errorf("expected mp3, got %q", got)
	}
}
