// Package report packages an evidence bundle and fused verdict into
// the public response shape. It is a pure transformation; its only job
// beyond field mapping is making sure no NaN or Infinity can reach the
// JSON encoder.
package report

import (
	"math"

	"github.com/forgesight-ai/forgesight/internal/evidence"
	"github.com/forgesight-ai/forgesight/internal/fusion"
	"github.com/forgesight-ai/forgesight/internal/metadata"
)

// Report is the public analysis response.
type Report struct {
	Verdict         VerdictPayload     `json:"verdict"`
	Details         DetailsPayload     `json:"details"`
	ComponentScores map[string]float64 `json:"componentScores"`
}

type VerdictPayload struct {
	AIProbability   float64 `json:"aiProbability"`
	Classification  string  `json:"classification"`
	DetectionMethod string  `json:"detection_method"`
}

type DetailsPayload struct {
	AIArtifacts   AIArtifacts       `json:"aiArtifacts"`
	NoiseAnalysis NoiseAnalysis     `json:"noiseAnalysis"`
	MetadataDump  map[string]string `json:"metadataDump"`
}

type AIArtifacts struct {
	Confidence   float64 `json:"confidence"`
	Detected     bool    `json:"detected"`
	ModelFlagged string  `json:"model_flagged"`
}

type NoiseAnalysis struct {
	Entropy  float64 `json:"entropy"`
	Variance float64 `json:"variance"`
}

// Assemble builds the response from the signals and the verdict.
func Assemble(ev evidence.Bundle, v fusion.Verdict, meta metadata.Info) Report {
	modelScore := finite(v.ComponentScores[fusion.ComponentModel])
	detected := modelScore > fusion.SyntheticThreshold

	flagged := ""
	if detected {
		flagged = v.DetectionSource
	}

	dump := meta.Fields
	if dump == nil {
		dump = map[string]string{}
	}

	scores := make(map[string]float64, len(v.ComponentScores))
	for k, val := range v.ComponentScores {
		scores[k] = finite(val)
	}

	return Report{
		Verdict: VerdictPayload{
			AIProbability:   finite(v.Risk),
			Classification:  string(v.Classification),
			DetectionMethod: v.Method,
		},
		Details: DetailsPayload{
			AIArtifacts: AIArtifacts{
				Confidence:   modelScore,
				Detected:     detected,
				ModelFlagged: flagged,
			},
			NoiseAnalysis: NoiseAnalysis{
				Entropy:  finite(ev.Entropy),
				Variance: finite(ev.Variance),
			},
			MetadataDump: dump,
		},
		ComponentScores: scores,
	}
}

// finite flushes NaN and infinities to zero. Several upstream variants
// of this pipeline leaked NaN into JSON on empty buffers; the encoder
// must never see one.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
