// Package auth signs client assertions and exchanges them for API access tokens.
package auth

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	clockSkew         = 60 * time.Second
	assertionLifetime = 180 * 24 * time.Hour
)

// Signer builds ES256 client assertions from a PEM-encoded P-256 private key.
type Signer struct {
	keyID    string
	clientID string
	keyPath  string
	audience string
}

// NewSigner creates a Signer. The key file is read on every Sign call.
func NewSigner(keyID, clientID, keyPath, audience string) *Signer {
	return &Signer{
		keyID:    keyID,
		clientID: clientID,
		keyPath:  keyPath,
		audience: audience,
	}
}

// Sign returns a compact signed assertion issued at now. Errors reading or
// parsing the key file are returned as-is.
func (s *Signer) Sign(now time.Time) (string, error) {
	pemBytes, err := os.ReadFile(s.keyPath)
	if err != nil {
		return "", err
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return "", err
	}

	// aud is a plain string, not the single-element array RegisteredClaims would emit.
	claims := jwt.MapClaims{
		"sub": s.clientID,
		"iss": s.clientID,
		"aud": s.audience,
		"iat": now.Add(-clockSkew).Unix(),
		"exp": now.Add(assertionLifetime).Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = s.keyID

	return token.SignedString(key)
}
