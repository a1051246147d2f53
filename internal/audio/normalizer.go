package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/yegors/scribe/pkg/logger"
)

// Normalizer converts supported containers into CanonicalAudio
type Normalizer struct {
	workDir string
	logger  *logger.Logger
}

// NewNormalizer creates a normalizer that stages payloads in workDir.
// An empty workDir uses the system temp directory.
func NewNormalizer(workDir string, log *logger.Logger) *Normalizer {
	return &Normalizer{
		workDir: workDir,
		logger:  log.Named("normalizer"),
	}
}

// Normalize decodes raw in the given codec and returns mono 16 kHz 16-bit PCM
func (n *Normalizer) Normalize(raw []byte, codec Codec) (*CanonicalAudio, error) {
	if codec != CodecMP3 && codec != CodecWAV {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, codec)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	dec, err := n.decodeViaWorkFile(raw, codec)
	if err != nil {
		return nil, err
	}
	if dec.frames() == 0 {
		return nil, fmt.Errorf("%w: no audio samples", ErrDecode)
	}

	n.logger.Debug("Decoded audio",
		logger.String("codec", string(codec)),
		logger.Int("sample_rate", dec.sampleRate),
		logger.Int("channels", dec.channels),
		logger.Int("frames", dec.frames()))

	mono := downmix(dec)
	samples := clampTo16(resample(mono, dec.sampleRate, CanonicalSampleRate))

	report := LoudnessReport{}
	normalized, gainDB, err := normalizePeak(samples)
	if err != nil {
		report.Warning = fmt.Sprintf("loudness normalization skipped: %v", err)
		n.logger.Warn("Loudness normalization failed, using original audio", logger.Error(err))
	} else {
		samples = normalized
		report.Applied = true
		report.GainDB = gainDB
	}

	return &CanonicalAudio{
		pcm:      samplesToBytes(samples),
		loudness: report,
	}, nil
}

// decodeViaWorkFile stages raw in a transient file that is removed on return
func (n *Normalizer) decodeViaWorkFile(raw []byte, codec Codec) (*decoded, error) {
	f, err := os.CreateTemp(n.workDir, "scribe-*."+string(codec))
	if err != nil {
		return nil, fmt.Errorf("failed to create work file: %w", err)
	}
	defer func() {
		f.Close()
		if err := os.Remove(f.Name()); err != nil {
			n.logger.Warn("Failed to remove work file", logger.String("path", f.Name()), logger.Error(err))
		}
	}()

	if _, err := f.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to write work file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind work file: %w", err)
	}

	switch codec {
	case CodecWAV:
		return decodeWAV(f)
	default:
		return decodeMP3(f)
	}
}
