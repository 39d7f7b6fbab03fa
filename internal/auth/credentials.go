package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier checks a username/password pair. Implementations can be
// swapped without touching the middleware or handler wiring.
type CredentialVerifier interface {
	Verify(username, password string) bool
}

// StaticVerifier verifies against a single configured credential pair.
// When a bcrypt hash is configured it takes precedence over the plaintext
// password.
type StaticVerifier struct {
	username     string
	password     string
	passwordHash string
}

// NewStaticVerifier creates a verifier for a static credential pair.
func NewStaticVerifier(username, password, passwordHash string) *StaticVerifier {
	return &StaticVerifier{
		username:     username,
		password:     password,
		passwordHash: passwordHash,
	}
}

// Verify reports whether the supplied pair matches the configured credential.
func (v *StaticVerifier) Verify(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) != 1 {
		return false
	}
	if v.passwordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(v.passwordHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(v.password)) == 1
}
