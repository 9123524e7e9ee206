package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// analyzePayload is the decoded image plus whatever the caller told us
// about it.
type analyzePayload struct {
	data      []byte
	filename  string
	mimeType  string
	fetchedBy string // source URL when the bytes were downloaded
}

type httpError struct {
	status  int
	message string
	kind    string
}

func (e *httpError) Error() string { return e.message }

type analyzeRequest struct {
	Data     string `json:"data"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
}

// decodeAnalyzeRequest accepts three request shapes: a JSON envelope
// with base64 data, a JSON envelope with a source URL, or raw image
// bytes. An empty buffer is a legal input and flows through analysis.
func (s *Server) decodeAnalyzeRequest(r *http.Request) (*analyzePayload, *httpError) {
	limited := http.MaxBytesReader(nil, r.Body, s.cfg.Server.MaxRequestBodyBytes)
	defer limited.Close()

	contentType := r.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))

	switch {
	case contentType == "application/json" || contentType == "":
		body, err := io.ReadAll(limited)
		if err != nil {
			return nil, bodyReadError(err)
		}
		return s.decodeJSONEnvelope(r, body)
	case strings.HasPrefix(contentType, "image/") || contentType == "application/octet-stream":
		body, err := io.ReadAll(limited)
		if err != nil {
			return nil, bodyReadError(err)
		}
		return &analyzePayload{
			data:     body,
			filename: r.Header.Get("X-Filename"),
			mimeType: contentType,
		}, nil
	default:
		return nil, &httpError{
			status:  http.StatusUnsupportedMediaType,
			message: fmt.Sprintf("unsupported content type %q", contentType),
			kind:    "invalid_request_error",
		}
	}
}

func (s *Server) decodeJSONEnvelope(r *http.Request, body []byte) (*analyzePayload, *httpError) {
	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &httpError{
			status:  http.StatusBadRequest,
			message: "invalid JSON body",
			kind:    "invalid_request_error",
		}
	}

	if req.Data == "" && req.URL == "" {
		return nil, &httpError{
			status:  http.StatusBadRequest,
			message: "missing image payload: provide data or url",
			kind:    "invalid_request_error",
		}
	}

	if req.Data != "" {
		data, err := decodeImageData(req.Data)
		if err != nil {
			return nil, &httpError{
				status:  http.StatusBadRequest,
				message: "invalid base64 image data",
				kind:    "invalid_request_error",
			}
		}
		return &analyzePayload{
			data:     data,
			filename: req.Filename,
			mimeType: req.MimeType,
		}, nil
	}

	data, herr := s.fetchImage(r, req.URL)
	if herr != nil {
		return nil, herr
	}
	return &analyzePayload{
		data:      data,
		filename:  req.Filename,
		mimeType:  req.MimeType,
		fetchedBy: req.URL,
	}, nil
}

// decodeImageData strips an optional data-URI prefix before base64
// decoding, so callers can paste browser output directly.
func decodeImageData(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, errors.New("malformed data URI")
		}
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}

func (s *Server) fetchImage(r *http.Request, url string) ([]byte, *httpError) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, &httpError{
			status:  http.StatusBadRequest,
			message: "url must be http or https",
			kind:    "invalid_request_error",
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, &httpError{
			status:  http.StatusBadRequest,
			message: "invalid url",
			kind:    "invalid_request_error",
		}
	}

	resp, err := s.fetchClient.Do(req)
	if err != nil {
		return nil, &httpError{
			status:  http.StatusBadRequest,
			message: "could not fetch image from url",
			kind:    "invalid_request_error",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpError{
			status:  http.StatusBadRequest,
			message: fmt.Sprintf("image fetch returned status %d", resp.StatusCode),
			kind:    "invalid_request_error",
		}
	}

	limit := s.cfg.Server.MaxRequestBodyBytes
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &httpError{
			status:  http.StatusBadRequest,
			message: "could not read image from url",
			kind:    "invalid_request_error",
		}
	}
	if int64(len(data)) > limit {
		return nil, &httpError{
			status:  http.StatusRequestEntityTooLarge,
			message: "fetched image exceeds size limit",
			kind:    "payload_too_large",
		}
	}
	return data, nil
}

func bodyReadError(err error) *httpError {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &httpError{
			status:  http.StatusRequestEntityTooLarge,
			message: "request body exceeds size limit",
			kind:    "payload_too_large",
		}
	}
	return &httpError{
		status:  http.StatusBadRequest,
		message: "could not read request body",
		kind:    "invalid_request_error",
	}
}
