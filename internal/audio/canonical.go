package audio

import "time"

// Canonical PCM profile accepted by the recognition service
const (
	CanonicalSampleRate    = 16000
	CanonicalChannels      = 1
	CanonicalBitsPerSample = 16
)

// LoudnessReport describes the outcome of the peak normalization pass
type LoudnessReport struct {
	Applied bool    `json:"applied"`
	GainDB  float64 `json:"gain_db"`
	Warning string  `json:"warning,omitempty"`
}

// CanonicalAudio is decoded, downmixed and resampled PCM. Values are only
// produced by Normalizer and are never modified afterwards.
type CanonicalAudio struct {
	pcm      []byte
	loudness LoudnessReport
}

func (a *CanonicalAudio) SampleRate() int    { return CanonicalSampleRate }
func (a *CanonicalAudio) Channels() int      { return CanonicalChannels }
func (a *CanonicalAudio) BitsPerSample() int { return CanonicalBitsPerSample }

// Len returns the PCM payload size in bytes
func (a *CanonicalAudio) Len() int {
	return len(a.pcm)
}

// PCM returns a copy of the little-endian sample bytes
func (a *CanonicalAudio) PCM() []byte {
	out := make([]byte, len(a.pcm))
	copy(out, a.pcm)
	return out
}

// Loudness returns the report of the normalization pass
func (a *CanonicalAudio) Loudness() LoudnessReport {
	return a.loudness
}

// Duration returns the playback length of the audio
func (a *CanonicalAudio) Duration() time.Duration {
	samples := len(a.pcm) / (CanonicalBitsPerSample / 8)
	return time.Duration(samples) * time.Second / CanonicalSampleRate
}

// Frames splits the payload into consecutive frames of at most size bytes.
// Frames share memory with the audio but are capped so appends cannot
// write into neighbouring frames.
func (a *CanonicalAudio) Frames(size int) [][]byte {
	if size <= 0 || len(a.pcm) == 0 {
		return nil
	}
	frames := make([][]byte, 0, (len(a.pcm)+size-1)/size)
	for off := 0; off < len(a.pcm); off += size {
		end := min(off+size, len(a.pcm))
		frames = append(frames, a.pcm[off:end:end])
	}
	return frames
}

// WAV encodes the canonical audio as a RIFF/WAVE file
func (a *CanonicalAudio) WAV() []byte {
	return EncodeWAV(bytesToSamples(a.pcm), CanonicalSampleRate, CanonicalChannels)
}
