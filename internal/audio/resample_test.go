package audio

import (
	"math"
	"slices"
	"testing"
)

func TestDownmixAveragesChannels(t *testing.T) {
	d := &decoded{samples: []int32{100, -100, 300, 100}, channels: 2, sampleRate: 16000}
	got := downmix(d)
	want := []int32{0, 200}
	if !slices.Equal(got, want) {
		t.Errorf("downmix = %v, want %v", got, want)
	}
}

func TestResampleUpsamplesLinearly(t *testing.T) {
	got := resample([]int32{0, 100, 200}, 8000, 16000)
	want := []int32{0, 50, 100, 150, 200, 200}
	if !slices.Equal(got, want) {
		t.Errorf("resample = %v, want %v", got, want)
	}
}

func TestResampleDownsampleLength(t *testing.T) {
	in := make([]int32, 48000)
	got := resample(in, 48000, 16000)
	if len(got) != 16000 {
		t.Errorf("expected 16000 samples, got %d", len(got))
	}
}

func TestResampleSameRateCopies(t *testing.T) {
	in := []int32{1, 2, 3}
	got := resample(in, 16000, 16000)
	got[0] = 99
	if in[0] != 1 {
		t.Error("resample at equal rates must not alias its input")
	}
}

func TestClampTo16(t *testing.T) {
	got := clampTo16([]int32{40000, -40000, 12})
	want := []int16{math.MaxInt16, math.MinInt16, 12}
	if !slices.Equal(got, want) {
		t.Errorf("clampTo16 = %v, want %v", got, want)
	}
}

func TestScaleTo16(t *testing.T) {
	if got := scaleTo16(0, 8); got != -128<<8 {
		t.Errorf("8-bit zero: got %d", got)
	}
	if got := scaleTo16(255, 8); got != 127<<8 {
		t.Errorf("8-bit max: got %d", got)
	}
	if got := scaleTo16(0x7FFFFF, 24); got != 0x7FFF {
		t.Errorf("24-bit max: got %d", got)
	}
	if got := scaleTo16(-0x80000000, 32); got != -0x8000 {
		t.Errorf("32-bit min: got %d", got)
	}
}
