package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/forgesight-ai/forgesight/internal/classifier"
	"github.com/forgesight-ai/forgesight/internal/evidence"
	"github.com/forgesight-ai/forgesight/internal/fusion"
)

const eventVersion = "1"

// SourceSummary records where the analyzed bytes came from.
type SourceSummary struct {
	Filename  string `json:"filename,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int    `json:"size_bytes"`
	FetchedBy string `json:"fetched_by,omitempty"`
}

// VerdictSummary is the fused outcome as it was returned to the caller.
type VerdictSummary struct {
	Risk            float64            `json:"risk"`
	Classification  string             `json:"classification"`
	Method          string             `json:"method"`
	DetectionSource string             `json:"detection_source,omitempty"`
	ComponentScores map[string]float64 `json:"component_scores,omitempty"`
}

// SignalSummary preserves the raw collected signals for later review.
type SignalSummary struct {
	Entropy           float64 `json:"entropy"`
	Variance          float64 `json:"variance"`
	SampledBytes      int     `json:"sampled_bytes"`
	HasCameraMetadata bool    `json:"has_camera_metadata"`
	FormatIsPNG       bool    `json:"format_is_png"`
}

// Event is the canonical audit payload for one analysis.
type Event struct {
	Version     string              `json:"version"`
	Timestamp   time.Time           `json:"timestamp"`
	RequestID   string              `json:"request_id"`
	Source      SourceSummary       `json:"source"`
	Verdict     VerdictSummary      `json:"verdict"`
	Signals     SignalSummary       `json:"signals"`
	Classifiers []classifier.Result `json:"classifiers,omitempty"`
	LatencyMs   float64             `json:"latency_ms"`
}

// BuildParams collects the inputs needed to assemble an audit event.
type BuildParams struct {
	RequestID   string
	Source      SourceSummary
	Evidence    evidence.Bundle
	Verdict     fusion.Verdict
	Classifiers []classifier.Result
	Latency     time.Duration
}

// BuildEvent assembles a canonical event from a finished analysis.
// A missing request ID gets a fresh one so every audit line is traceable.
func BuildEvent(params BuildParams) *Event {
	id := params.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	return &Event{
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		RequestID: id,
		Source:    params.Source,
		Verdict: VerdictSummary{
			Risk:            params.Verdict.Risk,
			Classification:  string(params.Verdict.Classification),
			Method:          params.Verdict.Method,
			DetectionSource: params.Verdict.DetectionSource,
			ComponentScores: params.Verdict.ComponentScores,
		},
		Signals: SignalSummary{
			Entropy:           params.Evidence.Entropy,
			Variance:          params.Evidence.Variance,
			SampledBytes:      params.Evidence.SampledBytes,
			HasCameraMetadata: params.Evidence.HasCameraMetadata,
			FormatIsPNG:       params.Evidence.FormatIsPNG,
		},
		Classifiers: params.Classifiers,
		LatencyMs:   float64(params.Latency) / float64(time.Millisecond),
	}
}
