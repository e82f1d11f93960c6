// Package auth implements the dashboard's single shared-password login.
//
// There are no user accounts. A successful login stores a signed token under
// StorageKey in whatever client-side storage the caller provides; a session
// is authenticated for as long as that token is present and verifies.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// StorageKey is the fixed key the session token is persisted under.
const StorageKey = "firext-auth"

const issuer = "firext"

// ErrNotConfigured is returned when no shared password was configured.
var ErrNotConfigured = errors.New("auth: shared password is not configured")

// Authenticator checks the shared password and issues session tokens.
type Authenticator struct {
	password []byte
	secret   []byte
}

// NewAuthenticator creates an Authenticator. An empty secret falls back to
// the password so a deployment only has to configure one value.
func NewAuthenticator(password, secret string) *Authenticator {
	if secret == "" {
		secret = password
	}
	return &Authenticator{password: []byte(password), secret: []byte(secret)}
}

// Check reports whether pw matches the shared password.
func (a *Authenticator) Check(pw string) bool {
	if len(a.password) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(a.password, []byte(pw)) == 1
}

// Issue signs a session token. Tokens carry no expiry.
func (a *Authenticator) Issue() (string, error) {
	if len(a.password) == 0 {
		return "", ErrNotConfigured
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  issuer,
		Subject: "dashboard",
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify reports whether token was issued by this Authenticator.
func (a *Authenticator) Verify(token string) bool {
	if token == "" || len(a.secret) == 0 {
		return false
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	return err == nil && parsed.Valid
}
