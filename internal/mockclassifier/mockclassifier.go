package mockclassifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort       = 18080
	defaultDelayMS    = 50
	defaultLabel      = "artificial"
	defaultConfidence = 0.92
)

// StartMockClassifier launches a lightweight classifier mock server.
// If addr is empty, it listens on 127.0.0.1:MOCK_CLASSIFIER_PORT (default 18080).
// It returns a shutdown function and the base URL (e.g., http://127.0.0.1:18080).
func StartMockClassifier(addr string) (func(context.Context) error, string, error) {
	if strings.TrimSpace(addr) == "" {
		port := strings.TrimSpace(os.Getenv("MOCK_CLASSIFIER_PORT"))
		if port == "" {
			port = fmt.Sprintf("%d", defaultPort)
		}
		addr = "127.0.0.1:" + port
	}

	delay := defaultDelayMS
	if val := strings.TrimSpace(os.Getenv("MOCK_DELAY_MS")); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			delay = parsed
		}
	}

	label := defaultLabel
	if val := strings.TrimSpace(os.Getenv("MOCK_LABEL")); val != "" {
		label = val
	}
	confidence := defaultConfidence
	if val := strings.TrimSpace(os.Getenv("MOCK_CONFIDENCE")); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= 0 && parsed <= 1 {
			confidence = parsed
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("mock classifier request method=%s path=%s", r.Method, r.URL.Path)

		p := r.URL.Path
		if len(p) > 1 {
			p = strings.TrimSuffix(p, "/")
		}

		if r.Method == http.MethodPost && (p == "/v1/classify" || p == "/classify") {
			writeClassification(w, delay, label, confidence)
			return
		}

		writeNotFoundJSON(w)
	})

	srv := &http.Server{
		Handler: mux,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("mock classifier server error: %v", err)
		}
	}()

	shutdown := func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	}

	baseURL := "http://" + ln.Addr().String()
	log.Printf("mock classifier listening on %s (delay_ms=%d label=%s confidence=%.2f)", baseURL, delay, label, confidence)
	return shutdown, baseURL, nil
}

func writeNotFoundJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": "Not found",
			"type":    "invalid_request_error",
		},
	})
}

func writeClassification(w http.ResponseWriter, delayMS int, label string, confidence float64) {
	if delayMS > 0 {
		time.Sleep(time.Duration(delayMS) * time.Millisecond)
	}

	resp := map[string]any{
		"model":      "mock-detector",
		"label":      label,
		"confidence": confidence,
		"predictions": []map[string]any{
			{"label": label, "confidence": confidence},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
