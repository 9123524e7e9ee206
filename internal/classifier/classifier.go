// Package classifier wraps external "is this image synthetic"
// capabilities behind one interface: given image bytes, return a label
// and a confidence in [0,1]. Backends are remote HTTP services, a
// local ONNX model, or fakes for tests.
package classifier

import (
	"context"
	"errors"
)

// ErrUnavailable marks a classifier that cannot run at all in this
// deployment (missing credentials, missing model bundle). Callers fold
// it to zero evidence rather than failing the request.
var ErrUnavailable = errors.New("classifier unavailable")

// Input is the image handed to a classifier.
type Input struct {
	Bytes    []byte
	Filename string
	MimeType string
}

// Prediction is a raw backend answer before label normalization.
type Prediction struct {
	Label      string
	Confidence float64
}

// Classifier is the external inference capability.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, in Input) (*Prediction, error)
}
