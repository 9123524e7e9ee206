package classifier

import "testing"

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		name       string
		label      string
		confidence float64
		want       float64
		wantOK     bool
	}{
		{"artificial uses confidence directly", "artificial", 0.92, 0.92, true},
		{"fake substring", "deepfake", 0.7, 0.7, true},
		{"ai generated", "AI Generated", 0.85, 0.85, true},
		{"synth", "synthetic_media", 0.6, 0.6, true},
		{"cg render", "CG", 0.4, 0.4, true},
		{"real inverts", "real", 0.9, 0.1, true},
		{"human inverts", "Human Photo", 0.75, 0.25, true},
		{"uppercase real", "REAL", 1.0, 0.0, true},
		{"unrecognized label", "landscape", 0.99, 0, false},
		{"empty label", "", 0.5, 0, false},
		{"confidence above one clamps", "fake", 1.7, 1.0, true},
		{"negative confidence clamps", "fake", -0.2, 0.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeScore(&Prediction{Label: tt.label, Confidence: tt.confidence})
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeScoreNilPrediction(t *testing.T) {
	if score, ok := NormalizeScore(nil); ok || score != 0 {
		t.Fatalf("nil prediction scored (%v, %v), want (0, false)", score, ok)
	}
}

func TestNormalizeScoreSyntheticWinsOverOrganic(t *testing.T) {
	// "ai" and "real" both match; synthetic markers take priority.
	score, ok := NormalizeScore(&Prediction{Label: "ai_vs_real", Confidence: 0.8})
	if !ok || score != 0.8 {
		t.Fatalf("got (%v, %v), want (0.8, true)", score, ok)
	}
}
