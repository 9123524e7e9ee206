package classifier

import (
	"context"
	"time"
)

// Fake is a scriptable classifier for tests.
type Fake struct {
	Source     string
	Prediction *Prediction
	Err        error
	Delay      time.Duration
}

func (f *Fake) Name() string {
	if f.Source == "" {
		return "fake"
	}
	return f.Source
}

func (f *Fake) Classify(ctx context.Context, in Input) (*Prediction, error) {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Prediction == nil {
		return &Prediction{Label: "real", Confidence: 0.5}, nil
	}
	p := *f.Prediction
	return &p, nil
}

// NewFake returns a classifier that always answers with the given
// label and confidence.
func NewFake(source, label string, confidence float64) *Fake {
	return &Fake{
		Source:     source,
		Prediction: &Prediction{Label: label, Confidence: confidence},
	}
}
