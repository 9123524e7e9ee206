// Package fusion combines independent image signals into one bounded
// risk score and categorical verdict. Fuse is pure and deterministic:
// no I/O, no clock, no state between calls. The combination rules are
// documented policy, not forensic science; see policy.go.
package fusion

import (
	"math"

	"github.com/forgesight-ai/forgesight/internal/evidence"
)

// Classification is the categorical verdict.
type Classification string

const (
	Organic   Classification = "ORGANIC"
	Synthetic Classification = "SYNTHETIC"
)

// Verdict is the fused output for one evidence bundle.
type Verdict struct {
	// Risk is the final forgery likelihood, always within [0,1].
	Risk           float64
	Classification Classification
	// Method attributes which signal family decided the verdict.
	Method string
	// DetectionSource names the classifier behind the strongest model
	// score, empty when no classifier scored.
	DetectionSource string
	// ComponentScores records every contributing signal, including
	// zero-valued ones, keyed by the Component* constants.
	ComponentScores map[string]float64
}

// Fuse maps an evidence bundle to a verdict by the documented policy:
// take the max of the model, physics, and format signals, escalate
// when a weak model signal meets missing provenance, and floor the
// result when nothing at all vouches for the content.
func Fuse(ev evidence.Bundle) Verdict {
	modelScore, detectionSource := ev.MaxModelScore()
	modelScore = clamp01(modelScore)

	physicsScore := physicsSignal(ev)
	formatRisk := formatSignal(ev)

	finalRisk := math.Max(modelScore, math.Max(physicsScore, formatRisk))

	escalated := false
	if modelScore > WeakModelSignal && !ev.HasCameraMetadata {
		finalRisk = math.Max(finalRisk, MissingOriginRisk)
		escalated = true
	}

	floored := false
	if finalRisk < UncertaintyBelow && !ev.HasCameraMetadata {
		finalRisk = UncertaintyFloor
		floored = true
	}

	finalRisk = clamp01(finalRisk)

	classification := Organic
	if finalRisk > SyntheticThreshold {
		classification = Synthetic
	}

	method := attributeMethod(modelScore, physicsScore, formatRisk, detectionSource, escalated, floored)

	return Verdict{
		Risk:            finalRisk,
		Classification:  classification,
		Method:          method,
		DetectionSource: detectionSource,
		ComponentScores: map[string]float64{
			ComponentModel:   modelScore,
			ComponentPhysics: physicsScore,
			ComponentFormat:  formatRisk,
		},
	}
}

// physicsSignal sums the independent statistical anomaly penalties.
// A bundle that sampled nothing carries no physics signal: zero bytes
// are "no data", not "suspiciously smooth data".
func physicsSignal(ev evidence.Bundle) float64 {
	if ev.SampledBytes == 0 {
		return 0
	}

	score := 0.0
	if ev.Entropy < EntropySmoothMax {
		score += SmoothPenalty
	}
	if ev.Entropy > EntropyNoiseMin {
		score += NoisePenalty
	}
	if ev.Variance < VarianceFlatMax {
		score += FlatPenalty
	}
	if score > PhysicsCap {
		score = PhysicsCap
	}
	return score
}

func formatSignal(ev evidence.Bundle) float64 {
	if ev.FormatIsPNG && !ev.HasCameraMetadata {
		return FormatAnomalyRisk
	}
	return 0
}

// attributeMethod picks the label in dominance order: format, physics,
// neural net, uncertain. The uncertainty floor replaces the label
// outright; the missing-origin escalation suffixes it.
func attributeMethod(modelScore, physicsScore, formatRisk float64, source string, escalated, floored bool) string {
	if floored {
		return MethodUncertaintyFloor
	}

	var method string
	switch {
	case formatRisk > 0 && formatRisk >= physicsScore && formatRisk >= modelScore:
		method = MethodFormatAnomaly
	case physicsScore > 0 && physicsScore >= modelScore:
		method = MethodPhysicsEngine
	case modelScore > SyntheticThreshold:
		method = MethodNeuralNetPrefix + source
	default:
		method = MethodUncertain
	}

	if escalated {
		method += MethodMissingOrigin
	}
	return method
}

// clamp01 bounds v to [0,1] and flushes non-finite values to zero so a
// corrupt signal can never leak NaN into a verdict.
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
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
