package evidence

import "math"

// TargetSampleCount bounds how many bytes the noise collector inspects
// regardless of input size. Large uploads are stride-sampled down to
// roughly this many bytes so entropy cost stays flat.
const TargetSampleCount = 5000

// NoiseStats holds the byte-level statistics extracted from a buffer.
type NoiseStats struct {
	Entropy      float64 // bits per sampled byte, 0-8
	Variance     float64 // population variance of sampled byte values
	SampledBytes int
}

// MeasureNoise computes Shannon entropy and variance over a
// deterministic stride-sampled subset of data. It is pure arithmetic
// and never fails; an empty buffer yields all-zero stats.
func MeasureNoise(data []byte) NoiseStats {
	if len(data) == 0 {
		return NoiseStats{}
	}

	step := len(data) / TargetSampleCount
	if step < 1 {
		step = 1
	}

	var hist [256]int
	var sum float64
	n := 0
	for i := 0; i < len(data); i += step {
		b := data[i]
		hist[b]++
		sum += float64(b)
		n++
	}

	mean := sum / float64(n)

	entropy := 0.0
	variance := 0.0
	for v, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(n)
		entropy -= p * math.Log2(p)
		d := float64(v) - mean
		variance += p * d * d
	}

	return NoiseStats{
		Entropy:      entropy,
		Variance:     variance,
		SampledBytes: n,
	}
}
