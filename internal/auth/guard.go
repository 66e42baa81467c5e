// Package auth guards writes with a single shared secret configured for the
// lifetime of the process.
package auth

import (
	"crypto/subtle"

	"github.com/dreamware/changelogd/internal/apierr"
)

// Header is the request header that carries the write credential.
const Header = "X-API-Key"

// Guard compares caller credentials against the configured secret. It is
// immutable and safe for concurrent use.
type Guard struct {
	secret []byte
}

// NewGuard creates a guard for secret. An empty secret authorizes nothing.
func NewGuard(secret string) *Guard {
	return &Guard{secret: []byte(secret)}
}

// Authorize returns nil when credential exactly equals the secret and an
// Unauthorized error otherwise, including when the credential is absent.
func (g *Guard) Authorize(credential string) error {
	if len(g.secret) == 0 || credential == "" {
		return apierr.New(apierr.CodeUnauthorized, "missing credential")
	}
	if subtle.ConstantTimeCompare([]byte(credential), g.secret) != 1 {
		return apierr.New(apierr.CodeUnauthorized, "credential mismatch")
	}
	return nil
}
