package auth

import (
	"net/http/httptest"
	"testing"
)

func TestAllowDisabledAuth(t *testing.T) {
	a := New("")
	r := httptest.NewRequest("POST", "/v1/analyze", nil)
	if !a.Allow(r) {
		t.Fatal("open gateway rejected a request")
	}
	if a.Enabled() {
		t.Fatal("empty secret reported as enabled")
	}
}

func TestAllowBearer(t *testing.T) {
	a := New("s3cret")

	r := httptest.NewRequest("POST", "/v1/analyze", nil)
	r.Header.Set("Authorization", "Bearer s3cret")
	if !a.Allow(r) {
		t.Error("valid bearer token rejected")
	}

	r = httptest.NewRequest("POST", "/v1/analyze", nil)
	r.Header.Set("Authorization", "Bearer wrong")
	if a.Allow(r) {
		t.Error("wrong bearer token accepted")
	}

	r = httptest.NewRequest("POST", "/v1/analyze", nil)
	if a.Allow(r) {
		t.Error("missing credentials accepted")
	}
}

func TestAllowHeaderKey(t *testing.T) {
	a := New("s3cret")

	r := httptest.NewRequest("POST", "/v1/analyze", nil)
	r.Header.Set(HeaderKey, "s3cret")
	if !a.Allow(r) {
		t.Error("valid header key rejected")
	}

	r = httptest.NewRequest("POST", "/v1/analyze", nil)
	r.Header.Set(HeaderKey, "nope")
	if a.Allow(r) {
		t.Error("wrong header key accepted")
	}
}

func TestParseBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := parseBearerToken(tt.header)
		if token != tt.token || ok != tt.ok {
			t.Errorf("parseBearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, token, ok, tt.token, tt.ok)
		}
	}
}
