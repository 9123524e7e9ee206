package evidence

// ModelScore is one normalized classifier contribution.
type ModelScore struct {
	Source string
	// Score is the classifier's probability that the image is synthetic, in [0,1].
	Score float64
}

// Bundle is the per-request signal set consumed by the fusion engine.
// It is built once from the raw bytes and never mutated afterwards.
type Bundle struct {
	// Entropy is Shannon entropy over the sampled byte histogram,
	// in raw bits per sampled byte (0-8). Fusion thresholds assume
	// this convention; do not feed normalized [0,1] values here.
	Entropy  float64
	Variance float64
	// SampledBytes is how many bytes the noise collector actually
	// looked at. Zero means there was nothing to measure, which the
	// fusion engine treats as "no physics signal" rather than
	// "suspiciously smooth".
	SampledBytes int

	HasCameraMetadata bool
	FormatIsPNG       bool

	ModelScores []ModelScore
}

// MaxModelScore returns the strongest classifier signal and the source
// that produced it. An empty score list yields (0, "").
func (b Bundle) MaxModelScore() (float64, string) {
	best := 0.0
	source := ""
	for _, ms := range b.ModelScores {
		if ms.Score > best {
			best = ms.Score
			source = ms.Source
		}
	}
	return best, source
}
