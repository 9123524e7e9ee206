// Package auth implements optional shared-secret authentication for
// trusted callers. When no secret is configured the gateway is open.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// HeaderKey is the alternative to the Authorization bearer header.
const HeaderKey = "X-Forgesight-Key"

// Auth checks request credentials against one shared secret.
type Auth struct {
	secret string
}

// New builds an Auth from the resolved shared secret. Empty means
// authentication is disabled.
func New(secret string) *Auth {
	return &Auth{secret: strings.TrimSpace(secret)}
}

// Enabled reports whether a secret is configured.
func (a *Auth) Enabled() bool {
	return a != nil && a.secret != ""
}

// Allow reports whether the request carries the shared secret, either
// as a bearer token or via the X-Forgesight-Key header. Always true
// when authentication is disabled.
func (a *Auth) Allow(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}

	if token, ok := parseBearerToken(r.Header.Get("Authorization")); ok {
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.secret)) == 1 {
			return true
		}
	}
	if key := strings.TrimSpace(r.Header.Get(HeaderKey)); key != "" {
		return subtle.ConstantTimeCompare([]byte(key), []byte(a.secret)) == 1
	}
	return false
}

// parseBearerToken extracts the token from an Authorization: Bearer header.
func parseBearerToken(h string) (string, bool) {
	if h == "" {
		return "", false
	}
	parts := strings.Fields(h)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
