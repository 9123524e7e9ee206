package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/forgesight-ai/forgesight/internal/audit"
	"github.com/forgesight-ai/forgesight/internal/auth"
	"github.com/forgesight-ai/forgesight/internal/classifier"
	"github.com/forgesight-ai/forgesight/internal/collect"
	"github.com/forgesight-ai/forgesight/internal/config"
	"github.com/forgesight-ai/forgesight/internal/fusion"
	"github.com/forgesight-ai/forgesight/internal/redact"
	"github.com/forgesight-ai/forgesight/internal/report"
	"github.com/forgesight-ai/forgesight/internal/telemetry"
)

// Server terminates the HTTP surface and owns the analysis pipeline.
type Server struct {
	mux         *http.ServeMux
	cfg         *config.Config
	auth        *auth.Auth
	classifiers []classifier.Classifier
	emitter     *audit.Emitter
	telemetry   *telemetry.Provider
	fetchClient *http.Client
	inFlight    chan struct{}
}

// Deps carries the collaborators the server does not build itself.
// Classifiers overrides the config-driven registry when non-nil, which
// keeps tests free of network endpoints.
type Deps struct {
	Auth        *auth.Auth
	Emitter     *audit.Emitter
	Telemetry   *telemetry.Provider
	Classifiers []classifier.Classifier
}

// New wires the server from config. Classifier backends that cannot be
// constructed (e.g. a local model bundle that is absent) are skipped
// with a log line rather than failing startup.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	classifiers := deps.Classifiers
	if classifiers == nil {
		var err error
		classifiers, err = buildClassifierRegistry(cfg)
		if err != nil {
			return nil, err
		}
	}

	authz := deps.Auth
	if authz == nil {
		authz = auth.New("")
	}

	s := &Server{
		mux:         http.NewServeMux(),
		cfg:         cfg,
		auth:        authz,
		classifiers: classifiers,
		emitter:     deps.Emitter,
		telemetry:   deps.Telemetry,
		fetchClient: &http.Client{
			Timeout: time.Duration(cfg.Analysis.FetchTimeoutSeconds) * time.Second,
		},
		inFlight: make(chan struct{}, cfg.Server.MaxInFlightRequests),
	}

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/v1/analyze", s.handleAnalyze)

	return s, nil
}

// Handler returns the root handler with panic recovery applied.
func (s *Server) Handler() http.Handler {
	return s.recoverMiddleware(s.mux)
}

func buildClassifierRegistry(cfg *config.Config) ([]classifier.Classifier, error) {
	names := make([]string, 0, len(cfg.Classifiers))
	for name := range cfg.Classifiers {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []classifier.Classifier
	for _, name := range names {
		cc := cfg.Classifiers[name]
		switch cc.Type {
		case "http":
			out = append(out, classifier.NewHTTP(classifier.HTTPOptions{
				Name:             name,
				Endpoint:         cc.Endpoint,
				APIKey:           cc.ResolveAPIKey(),
				KeyRequired:      cc.KeyRequired,
				Timeout:          time.Duration(cc.TimeoutSeconds) * time.Second,
				MaxResponseBytes: cc.MaxResponseBytes,
			}))
		case "onnx_local":
			c, err := classifier.NewLocalONNX(name, cc.BundleDir)
			if err != nil {
				redact.Logf("classifier %s: local model unavailable: %v", name, err)
				continue
			}
			out = append(out, c)
		default:
			return nil, fmt.Errorf("classifier %s: unknown type %q", name, cc.Type)
		}
	}
	return out, nil
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				redact.Logf("panic serving %s: %v\n%s", r.URL.Path, rec, debug.Stack())
				writeError(w, http.StatusInternalServerError, "internal error", "internal_error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "invalid_request_error")
		return
	}

	if !s.auth.Allow(r) {
		writeError(w, http.StatusUnauthorized, "invalid or missing credentials", "authentication_error")
		return
	}

	select {
	case s.inFlight <- struct{}{}:
		defer func() { <-s.inFlight }()
	default:
		writeError(w, http.StatusTooManyRequests, "too many concurrent requests", "rate_limit_error")
		return
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	payload, herr := s.decodeAnalyzeRequest(r)
	if herr != nil {
		writeError(w, herr.status, herr.message, herr.kind)
		return
	}

	started := time.Now()
	ctx := r.Context()

	ev, meta, results := collect.Gather(ctx, payload.data, s.classifiers, collect.Options{
		ClassifierTimeout: time.Duration(s.cfg.Analysis.ClassifierTimeoutSeconds) * time.Second,
		Filename:          payload.filename,
		MimeType:          payload.mimeType,
	})
	verdict := fusion.Fuse(ev)
	resp := report.Assemble(ev, verdict, meta)

	elapsed := time.Since(started)
	s.telemetry.RecordAnalysis(string(verdict.Classification), verdict.Method, float64(elapsed)/float64(time.Millisecond))
	for _, res := range results {
		s.telemetry.RecordClassifier(res.Source, string(res.Status), res.LatencyMs)
	}

	s.emitter.Emit(ctx, audit.BuildEvent(audit.BuildParams{
		RequestID: requestID,
		Source: audit.SourceSummary{
			Filename:  payload.filename,
			MimeType:  payload.mimeType,
			SizeBytes: len(payload.data),
			FetchedBy: payload.fetchedBy,
		},
		Evidence:    ev,
		Verdict:     verdict,
		Classifiers: results,
		Latency:     elapsed,
	}))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		redact.Logf("encode response: %v", err)
	}
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message, Detail: detail})
}
