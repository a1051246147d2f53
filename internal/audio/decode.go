package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// decoded holds interleaved samples scaled to the signed 16-bit range
type decoded struct {
	samples    []int32
	channels   int
	sampleRate int
}

func (d *decoded) frames() int {
	return len(d.samples) / d.channels
}

func decodeWAV(rs io.ReadSeeker) (*decoded, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrDecode)
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: unsupported WAV encoding %d", ErrDecode, dec.WavAudioFormat)
	}

	depth := int(dec.BitDepth)
	switch depth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrDecode, depth)
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, fmt.Errorf("%w: missing channel count or sample rate", ErrDecode)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	channels := int(dec.NumChans)
	usable := len(buf.Data) - len(buf.Data)%channels
	samples := make([]int32, usable)
	for i, s := range buf.Data[:usable] {
		samples[i] = scaleTo16(s, depth)
	}

	return &decoded{samples: samples, channels: channels, sampleRate: int(dec.SampleRate)}, nil
}

// scaleTo16 maps a sample of the given bit depth into the int16 range.
// 8-bit WAV samples are unsigned.
func scaleTo16(s, depth int) int32 {
	switch depth {
	case 8:
		return int32(s-128) << 8
	case 24:
		return int32(s >> 8)
	case 32:
		return int32(s >> 16)
	default:
		return int32(s)
	}
}

func decodeMP3(r io.Reader) (*decoded, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// go-mp3 always produces 16-bit little-endian stereo
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	const channels = 2
	n := len(raw) / 2
	n -= n % channels
	samples := make([]int32, n)
	for i := range samples {
		samples[i] = int32(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}

	return &decoded{samples: samples, channels: channels, sampleRate: dec.SampleRate()}, nil
}
