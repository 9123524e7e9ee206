package server

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/forgesight-ai/forgesight/internal/auth"
	"github.com/forgesight-ai/forgesight/internal/classifier"
	"github.com/forgesight-ai/forgesight/internal/config"
	"github.com/forgesight-ai/forgesight/internal/report"
)

func newTestServer(t *testing.T, mutate func(*config.Config), deps Deps) *httptest.Server {
	t.Helper()

	cfg, err := config.Load("testdata/does-not-exist.yaml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if mutate != nil {
		mutate(cfg)
	}
	if deps.Classifiers == nil {
		deps.Classifiers = []classifier.Classifier{}
	}

	s, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/v1/analyze", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeReport(t *testing.T, resp *http.Response) report.Report {
	t.Helper()
	var rep report.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return rep
}

// minimalTIFF builds a little-endian TIFF whose IFD0 carries a single
// ASCII Make tag, enough for the metadata collector to see a camera.
func minimalTIFF(t *testing.T, makeValue string) []byte {
	t.Helper()

	value := append([]byte(makeValue), 0)
	size := 26
	if len(value) > 4 {
		size += len(value)
	}
	buf := make([]byte, size)

	copy(buf[0:], []byte{'I', 'I', 0x2A, 0x00})
	binary.LittleEndian.PutUint32(buf[4:], 8)

	binary.LittleEndian.PutUint16(buf[8:], 1)
	binary.LittleEndian.PutUint16(buf[10:], 0x010F)
	binary.LittleEndian.PutUint16(buf[12:], 2)
	binary.LittleEndian.PutUint32(buf[14:], uint32(len(value)))
	if len(value) > 4 {
		binary.LittleEndian.PutUint32(buf[18:], 26)
		copy(buf[26:], value)
	} else {
		copy(buf[18:22], value)
	}
	binary.LittleEndian.PutUint32(buf[22:], 0)

	return buf
}

func pngBytes() []byte {
	data := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	for i := 0; i < 256; i++ {
		data = append(data, byte(i))
	}
	return data
}

func TestAnalyzeRejectsNonPost(t *testing.T) {
	srv := newTestServer(t, nil, Deps{})

	resp, err := http.Get(srv.URL + "/v1/analyze")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestAnalyzeRejectsBadJSON(t *testing.T) {
	srv := newTestServer(t, nil, Deps{})

	resp := postJSON(t, srv.URL, "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAnalyzeRejectsMissingPayload(t *testing.T) {
	srv := newTestServer(t, nil, Deps{})

	resp := postJSON(t, srv.URL, `{"filename":"x.png"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAnalyzeRejectsOversizeBody(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.MaxRequestBodyBytes = 64
	}, Deps{})

	big := strings.Repeat("a", 200)
	resp := postJSON(t, srv.URL, fmt.Sprintf(`{"data":%q}`, big))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestAnalyzeRejectsUnsupportedContentType(t *testing.T) {
	srv := newTestServer(t, nil, Deps{})

	resp, err := http.Post(srv.URL+"/v1/analyze", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", resp.StatusCode)
	}
}

func TestAnalyzeRequiresAuthWhenConfigured(t *testing.T) {
	srv := newTestServer(t, nil, Deps{Auth: auth.New("s3cret")})

	resp := postJSON(t, srv.URL, `{"data":"aGVsbG8="}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/analyze", strings.NewReader(`{"data":"aGVsbG8="}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer s3cret")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authed post: %v", err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("status with key = %d, want 200", authed.StatusCode)
	}
}

func TestAnalyzeEmptyBufferGetsUncertaintyFloor(t *testing.T) {
	srv := newTestServer(t, nil, Deps{})

	resp, err := http.Post(srv.URL+"/v1/analyze", "application/octet-stream", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	rep := decodeReport(t, resp)
	if rep.Verdict.AIProbability != 0.45 {
		t.Errorf("aiProbability = %v, want 0.45", rep.Verdict.AIProbability)
	}
	if rep.Verdict.Classification != "ORGANIC" {
		t.Errorf("classification = %q, want ORGANIC", rep.Verdict.Classification)
	}
	if rep.Verdict.DetectionMethod != "HEURISTIC_UNCERTAINTY" {
		t.Errorf("detection_method = %q", rep.Verdict.DetectionMethod)
	}
}

func TestAnalyzePNGWithoutCameraIsFormatAnomaly(t *testing.T) {
	srv := newTestServer(t, nil, Deps{})

	encoded := base64.StdEncoding.EncodeToString(pngBytes())
	resp := postJSON(t, srv.URL, fmt.Sprintf(`{"data":%q,"filename":"img.png","mimetype":"image/png"}`, encoded))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	rep := decodeReport(t, resp)
	if rep.Verdict.AIProbability != 0.95 {
		t.Errorf("aiProbability = %v, want 0.95", rep.Verdict.AIProbability)
	}
	if rep.Verdict.Classification != "SYNTHETIC" {
		t.Errorf("classification = %q, want SYNTHETIC", rep.Verdict.Classification)
	}
	if rep.Verdict.DetectionMethod != "FORMAT_ANOMALY" {
		t.Errorf("detection_method = %q", rep.Verdict.DetectionMethod)
	}
}

func TestAnalyzeDataURIPrefixAccepted(t *testing.T) {
	srv := newTestServer(t, nil, Deps{})

	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes())
	resp := postJSON(t, srv.URL, fmt.Sprintf(`{"data":%q}`, encoded))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAnalyzeClassifierVerdictWithCameraMetadata(t *testing.T) {
	fake := classifier.NewFake("vendor-b", "artificial", 0.92)
	srv := newTestServer(t, nil, Deps{Classifiers: []classifier.Classifier{fake}})

	encoded := base64.StdEncoding.EncodeToString(minimalTIFF(t, "Canon"))
	resp := postJSON(t, srv.URL, fmt.Sprintf(`{"data":%q,"filename":"shot.tif"}`, encoded))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	rep := decodeReport(t, resp)
	if rep.Verdict.AIProbability != 0.92 {
		t.Errorf("aiProbability = %v, want 0.92", rep.Verdict.AIProbability)
	}
	if rep.Verdict.DetectionMethod != "NEURAL_NET:vendor-b" {
		t.Errorf("detection_method = %q", rep.Verdict.DetectionMethod)
	}
	if strings.Contains(rep.Verdict.DetectionMethod, "MISSING_ORIGIN") {
		t.Errorf("camera-backed image must not escalate: %q", rep.Verdict.DetectionMethod)
	}
	if rep.Details.AIArtifacts.ModelFlagged != "vendor-b" {
		t.Errorf("model_flagged = %q", rep.Details.AIArtifacts.ModelFlagged)
	}
	if got := rep.Details.MetadataDump["Make"]; got != "Canon" {
		t.Errorf("metadataDump[Make] = %q", got)
	}
}

func TestAnalyzeFetchesImageByURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes())
	}))
	defer upstream.Close()

	srv := newTestServer(t, nil, Deps{})

	resp := postJSON(t, srv.URL, fmt.Sprintf(`{"url":%q}`, upstream.URL))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	rep := decodeReport(t, resp)
	if rep.Verdict.DetectionMethod != "FORMAT_ANOMALY" {
		t.Errorf("detection_method = %q, want FORMAT_ANOMALY", rep.Verdict.DetectionMethod)
	}
}

func TestAnalyzeUnfetchableURLIsBadRequest(t *testing.T) {
	srv := newTestServer(t, nil, Deps{})

	resp := postJSON(t, srv.URL, `{"url":"http://127.0.0.1:1/nope"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAnalyzeSetsRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, nil, Deps{})

	resp, err := http.Post(srv.URL+"/v1/analyze", "application/octet-stream", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}
