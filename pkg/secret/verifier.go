// Package secret guards write operations behind the portal's single shared secret.
package secret

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrNotConfigured is returned by NewVerifier when neither a plain secret nor a hash is supplied.
var ErrNotConfigured = errors.New("upload secret not configured")

// Verifier compares caller-supplied secrets against a bcrypt hash so the plain value is not kept in memory.
type Verifier struct {
	hash []byte
}

// NewVerifier prefers a precomputed hash; otherwise it hashes plain once at startup.
// With neither set it returns a Verifier that rejects everything together with ErrNotConfigured.
func NewVerifier(plain, hash string) (*Verifier, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return &Verifier{}, fmt.Errorf("parse upload secret hash: %w", err)
		}
		return &Verifier{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return &Verifier{}, ErrNotConfigured
	}
	generated, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return &Verifier{}, fmt.Errorf("hash upload secret: %w", err)
	}
	return &Verifier{hash: generated}, nil
}

// Verify reports whether candidate matches the configured secret.
func (v *Verifier) Verify(candidate string) bool {
	if v == nil || len(v.hash) == 0 || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(candidate)) == nil
}
