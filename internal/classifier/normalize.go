package classifier

import "strings"

// Vendors disagree on label vocabulary, so normalization runs on
// case-insensitive substring matches. Synthetic markers are checked
// first: a label like "ai_vs_real" counts as synthetic.
var (
	syntheticMarkers = []string{"artificial", "fake", "cg", "synth", "ai"}
	organicMarkers   = []string{"real", "human"}
)

// NormalizeScore maps a raw prediction onto a single probability of
// synthetic origin. The second return is false when the label matches
// neither vocabulary; such responses contribute zero evidence and the
// caller logs them.
func NormalizeScore(p *Prediction) (float64, bool) {
	if p == nil {
		return 0, false
	}
	label := strings.ToLower(p.Label)
	conf := clamp01(p.Confidence)

	for _, m := range syntheticMarkers {
		if strings.Contains(label, m) {
			return conf, true
		}
	}
	for _, m := range organicMarkers {
		if strings.Contains(label, m) {
			return 1 - conf, true
		}
	}
	return 0, false
}

func clamp01(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
