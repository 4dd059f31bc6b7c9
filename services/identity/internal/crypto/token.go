package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// RefreshTokenBytes is the entropy of a refresh token. Encoded, a token is
// 43 characters of base64url without padding.
const RefreshTokenBytes = 32

var tokenEncoding = base64.RawURLEncoding

func NewRefreshToken() (string, error) {
	buf := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	return tokenEncoding.EncodeToString(buf), nil
}

// HashToken is the form refresh tokens take in refresh_sessions.token_hash.
// Only the hash is stored, so a leaked table cannot be replayed.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return tokenEncoding.EncodeToString(sum[:])
}
