// Package audio turns uploaded audio files into the canonical PCM profile the
// streaming recognizer accepts: mono, 16 kHz, signed 16-bit little-endian.
// It decodes the two supported containers (MP3 and WAV), downmixes, resamples
// and applies a best-effort peak normalization pass.
package audio
