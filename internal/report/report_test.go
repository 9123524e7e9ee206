package report

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/forgesight-ai/forgesight/internal/evidence"
	"github.com/forgesight-ai/forgesight/internal/fusion"
	"github.com/forgesight-ai/forgesight/internal/metadata"
)

func TestAssembleGuardsNonFiniteValues(t *testing.T) {
	ev := evidence.Bundle{Entropy: math.NaN(), Variance: math.Inf(1)}
	v := fusion.Verdict{
		Risk:           math.NaN(),
		Classification: fusion.Organic,
		Method:         fusion.MethodUncertain,
		ComponentScores: map[string]float64{
			fusion.ComponentModel:   math.Inf(-1),
			fusion.ComponentPhysics: 0,
			fusion.ComponentFormat:  0,
		},
	}

	rep := Assemble(ev, v, metadata.Info{})

	data, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("report with non-finite inputs failed to serialize: %v", err)
	}
	for _, bad := range []string{"NaN", "Inf"} {
		if strings.Contains(string(data), bad) {
			t.Errorf("serialized report contains %s: %s", bad, data)
		}
	}
	if rep.Details.NoiseAnalysis.Entropy != 0 || rep.Details.NoiseAnalysis.Variance != 0 {
		t.Errorf("non-finite noise values not zeroed: %+v", rep.Details.NoiseAnalysis)
	}
}

func TestAssembleModelFlagged(t *testing.T) {
	v := fusion.Verdict{
		Risk:            0.92,
		Classification:  fusion.Synthetic,
		Method:          fusion.MethodNeuralNetPrefix + "vendor-a",
		DetectionSource: "vendor-a",
		ComponentScores: map[string]float64{
			fusion.ComponentModel:   0.92,
			fusion.ComponentPhysics: 0,
			fusion.ComponentFormat:  0,
		},
	}

	rep := Assemble(evidence.Bundle{}, v, metadata.Info{})
	if !rep.Details.AIArtifacts.Detected {
		t.Error("expected aiArtifacts.detected for model score 0.92")
	}
	if rep.Details.AIArtifacts.ModelFlagged != "vendor-a" {
		t.Errorf("model_flagged = %q, want vendor-a", rep.Details.AIArtifacts.ModelFlagged)
	}
	if rep.Details.AIArtifacts.Confidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", rep.Details.AIArtifacts.Confidence)
	}
}

func TestAssembleWeakModelNotFlagged(t *testing.T) {
	v := fusion.Verdict{
		Risk:            0.45,
		Classification:  fusion.Organic,
		Method:          fusion.MethodUncertaintyFloor,
		DetectionSource: "vendor-a",
		ComponentScores: map[string]float64{
			fusion.ComponentModel:   0.2,
			fusion.ComponentPhysics: 0,
			fusion.ComponentFormat:  0,
		},
	}

	rep := Assemble(evidence.Bundle{}, v, metadata.Info{})
	if rep.Details.AIArtifacts.Detected {
		t.Error("weak model score must not set detected")
	}
	if rep.Details.AIArtifacts.ModelFlagged != "" {
		t.Errorf("model_flagged = %q, want empty", rep.Details.AIArtifacts.ModelFlagged)
	}
}

func TestAssembleMetadataDumpNeverNil(t *testing.T) {
	rep := Assemble(evidence.Bundle{}, fusion.Verdict{ComponentScores: map[string]float64{}}, metadata.Info{})
	if rep.Details.MetadataDump == nil {
		t.Fatal("metadataDump must serialize as {} rather than null")
	}

	data, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"metadataDump":{}`) {
		t.Errorf("expected empty object dump, got %s", data)
	}
}
