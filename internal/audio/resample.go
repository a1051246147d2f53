package audio

import "math"

// downmix averages interleaved channels into a single channel
func downmix(d *decoded) []int32 {
	if d.channels == 1 {
		out := make([]int32, len(d.samples))
		copy(out, d.samples)
		return out
	}

	n := d.frames()
	out := make([]int32, n)
	for i := range n {
		var sum int64
		base := i * d.channels
		for c := range d.channels {
			sum += int64(d.samples[base+c])
		}
		out[i] = int32(sum / int64(d.channels))
	}
	return out
}

// resample converts mono samples between rates by linear interpolation.
// Positions are computed in integer arithmetic so output is reproducible.
func resample(in []int32, srcRate, dstRate int) []int32 {
	if srcRate == dstRate || len(in) == 0 {
		out := make([]int32, len(in))
		copy(out, in)
		return out
	}

	src, dst := int64(srcRate), int64(dstRate)
	outLen := int64(len(in)) * dst / src
	if outLen == 0 {
		outLen = 1
	}

	out := make([]int32, outLen)
	last := int64(len(in) - 1)
	for i := range outLen {
		pos := i * src
		idx := pos / dst
		frac := pos % dst
		if idx >= last {
			out[i] = in[last]
			continue
		}
		a, b := int64(in[idx]), int64(in[idx+1])
		out[i] = int32(a + (b-a)*frac/dst)
	}
	return out
}

func clampTo16(in []int32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		switch {
		case s > math.MaxInt16:
			out[i] = math.MaxInt16
		case s < math.MinInt16:
			out[i] = math.MinInt16
		default:
			out[i] = int16(s)
		}
	}
	return out
}
