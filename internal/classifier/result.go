package classifier

// Status tags the per-classifier outcome variant.
type Status string

const (
	// StatusScored means the backend answered with a recognized label.
	StatusScored Status = "scored"
	// StatusUnavailable means the backend could not run at all.
	StatusUnavailable Status = "unavailable"
	// StatusError covers network failures, non-success responses,
	// timeouts, and unrecognized label shapes.
	StatusError Status = "error"
)

// Result preserves what actually happened to one classifier call. The
// distinction between variants exists for audit events and logs; the
// fusion engine only ever sees Score, which is zero for everything but
// a scored outcome.
type Result struct {
	Source     string  `json:"source"`
	Status     Status  `json:"status"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason,omitempty"`
	LatencyMs  float64 `json:"latency_ms"`
}
