package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpClassifier calls a remote JSON inference endpoint.
type httpClassifier struct {
	name             string
	endpoint         string
	apiKey           string
	keyMissing       bool
	client           *http.Client
	maxResponseBytes int64
}

// HTTPOptions configures a remote classifier backend.
type HTTPOptions struct {
	Name     string
	Endpoint string
	// APIKey may be empty for keyless endpoints. Set KeyRequired when
	// the vendor demands one so a missing key degrades to
	// ErrUnavailable instead of a doomed round trip.
	APIKey           string
	KeyRequired      bool
	Timeout          time.Duration
	MaxResponseBytes int64
}

// NewHTTP creates a remote HTTP classifier. Calls are one-shot with a
// per-call timeout and no retry.
func NewHTTP(opts HTTPOptions) Classifier {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxResp := opts.MaxResponseBytes
	if maxResp <= 0 {
		maxResp = 1 * 1024 * 1024
	}

	return &httpClassifier{
		name:             opts.Name,
		endpoint:         opts.Endpoint,
		apiKey:           opts.APIKey,
		keyMissing:       opts.KeyRequired && opts.APIKey == "",
		maxResponseBytes: maxResp,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *httpClassifier) Name() string { return c.name }

type classifyRequest struct {
	Data     string `json:"data"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mimetype,omitempty"`
}

// classifyResponse tolerates the response shapes seen across vendors:
// a flat {label, confidence}, {class, score}, or a predictions array.
type classifyResponse struct {
	Label       string               `json:"label"`
	Class       string               `json:"class"`
	Confidence  *float64             `json:"confidence"`
	Score       *float64             `json:"score"`
	Predictions []classifyPrediction `json:"predictions"`
}

type classifyPrediction struct {
	Label      string   `json:"label"`
	Class      string   `json:"class"`
	Confidence *float64 `json:"confidence"`
	Score      *float64 `json:"score"`
}

type classifyErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (c *httpClassifier) Classify(ctx context.Context, in Input) (*Prediction, error) {
	if c.keyMissing {
		return nil, fmt.Errorf("%s: no api key configured: %w", c.name, ErrUnavailable)
	}

	body, err := json.Marshal(classifyRequest{
		Data:     base64.StdEncoding.EncodeToString(in.Bytes),
		Filename: in.Filename,
		MimeType: in.MimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal classify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create classify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.maxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.name, err)
	}
	if int64(len(respBody)) > c.maxResponseBytes {
		return nil, fmt.Errorf("%s response exceeded limit (%d bytes)", c.name, c.maxResponseBytes)
	}

	if resp.StatusCode >= 400 {
		var errBody classifyErrorResponse
		if err := json.Unmarshal(respBody, &errBody); err == nil && errBody.Error != "" {
			return nil, fmt.Errorf("%s error status %d: %s", c.name, resp.StatusCode, errBody.Error)
		}
		return nil, fmt.Errorf("%s error status %d", c.name, resp.StatusCode)
	}

	var parsed classifyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", c.name, err)
	}

	pred, ok := pickPrediction(parsed)
	if !ok {
		return nil, fmt.Errorf("%s response had no usable prediction", c.name)
	}
	return pred, nil
}

// pickPrediction flattens the tolerated response shapes to one
// label/confidence pair, preferring the top-level fields and falling
// back to the highest-confidence array entry.
func pickPrediction(r classifyResponse) (*Prediction, bool) {
	label := r.Label
	if label == "" {
		label = r.Class
	}
	if label != "" {
		return &Prediction{Label: label, Confidence: confidenceOf(r.Confidence, r.Score)}, true
	}

	var best *Prediction
	for _, p := range r.Predictions {
		l := p.Label
		if l == "" {
			l = p.Class
		}
		if l == "" {
			continue
		}
		conf := confidenceOf(p.Confidence, p.Score)
		if best == nil || conf > best.Confidence {
			best = &Prediction{Label: l, Confidence: conf}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

func confidenceOf(confidence, score *float64) float64 {
	if confidence != nil {
		return *confidence
	}
	if score != nil {
		return *score
	}
	return 0
}
