package audio

import (
	"errors"
	"fmt"
	"math"
)

// TargetPeakDBFS is the peak level the normalization pass aims for
const TargetPeakDBFS = -0.1

var errSilent = errors.New("audio is silent")

// normalizePeak scales samples so the loudest one sits at TargetPeakDBFS.
// The input is left untouched; on error callers keep the original samples.
func normalizePeak(samples []int16) ([]int16, float64, error) {
	var peak int
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return nil, 0, errSilent
	}

	target := math.MaxInt16 * math.Pow(10, TargetPeakDBFS/20)
	gain := target / float64(peak)
	if math.IsNaN(gain) || math.IsInf(gain, 0) || gain <= 0 {
		return nil, 0, fmt.Errorf("invalid gain %v", gain)
	}

	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * gain)
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		out[i] = int16(v)
	}

	return out, 20 * math.Log10(gain), nil
}
