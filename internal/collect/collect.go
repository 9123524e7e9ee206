// Package collect runs the per-request signal collectors and
// assembles the evidence bundle. Model-score collectors fan out
// concurrently with wait-for-all, partial-failure-tolerated
// semantics: one dead classifier contributes zero evidence and never
// blocks or fails the others.
package collect

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forgesight-ai/forgesight/internal/classifier"
	"github.com/forgesight-ai/forgesight/internal/evidence"
	"github.com/forgesight-ai/forgesight/internal/metadata"
	"github.com/forgesight-ai/forgesight/internal/redact"
)

// Options controls one collection pass.
type Options struct {
	// ClassifierTimeout is the per-call budget for each external
	// classifier. One-shot, no retry.
	ClassifierTimeout time.Duration
	Filename          string
	MimeType          string
}

// Gather builds the evidence bundle for one image. It returns the
// bundle, the metadata view (for the report dump), and the preserved
// per-classifier outcome variants (for audit events).
func Gather(ctx context.Context, data []byte, classifiers []classifier.Classifier, opts Options) (evidence.Bundle, metadata.Info, []classifier.Result) {
	timeout := opts.ClassifierTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	// Local signals are pure arithmetic over the buffer; they run
	// inline while the network fan-out proceeds below.
	stats := evidence.MeasureNoise(data)
	format := evidence.SniffFormat(data)

	var meta metadata.Info
	results := make([]classifier.Result, len(classifiers))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		meta = metadata.Extract(data)
		return nil
	})

	for i, c := range classifiers {
		g.Go(func() error {
			results[i] = runClassifier(gctx, c, data, opts, timeout)
			return nil
		})
	}

	// Goroutines never return errors; partial failure is recorded in
	// the result variants instead.
	_ = g.Wait()

	scores := make([]evidence.ModelScore, 0, len(results))
	for _, r := range results {
		scores = append(scores, evidence.ModelScore{Source: r.Source, Score: r.Score})
	}

	bundle := evidence.Bundle{
		Entropy:           stats.Entropy,
		Variance:          stats.Variance,
		SampledBytes:      stats.SampledBytes,
		HasCameraMetadata: meta.HasCameraFields,
		FormatIsPNG:       format == evidence.FormatPNG,
		ModelScores:       scores,
	}
	return bundle, meta, results
}

// runClassifier executes one classifier call and folds every failure
// mode into a tagged result with zero score.
func runClassifier(ctx context.Context, c classifier.Classifier, data []byte, opts Options, timeout time.Duration) classifier.Result {
	res := classifier.Result{Source: c.Name()}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	pred, err := c.Classify(callCtx, classifier.Input{
		Bytes:    data,
		Filename: opts.Filename,
		MimeType: opts.MimeType,
	})
	res.LatencyMs = float64(time.Since(start)) / float64(time.Millisecond)

	switch {
	case errors.Is(err, classifier.ErrUnavailable):
		res.Status = classifier.StatusUnavailable
		res.Reason = err.Error()
		return res
	case err != nil:
		res.Status = classifier.StatusError
		res.Reason = err.Error()
		redact.Logf("classifier %s failed: %v", c.Name(), err)
		return res
	}

	score, ok := classifier.NormalizeScore(pred)
	if !ok {
		res.Status = classifier.StatusError
		res.Label = pred.Label
		res.Confidence = pred.Confidence
		res.Reason = "unrecognized label"
		redact.Logf("classifier %s returned unrecognized label %q; contributes zero evidence", c.Name(), pred.Label)
		return res
	}

	res.Status = classifier.StatusScored
	res.Label = pred.Label
	res.Confidence = pred.Confidence
	res.Score = score
	return res
}
