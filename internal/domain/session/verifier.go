package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// HMACVerifier implements Verifier by hashing the presented token with
// HMAC-SHA256 and a server-side pepper, then looking the hash up in the
// session repository with a constant-time comparison.
type HMACVerifier struct {
	repo   Repository
	pepper []byte
	now    func() time.Time
}

// NewHMACVerifier creates an HMACVerifier with the given repository and pepper.
func NewHMACVerifier(repo Repository, pepper []byte) *HMACVerifier {
	return &HMACVerifier{repo: repo, pepper: pepper, now: time.Now}
}

// HashToken returns the hex HMAC-SHA256 of the token under the pepper.
// Exposed so the seeding tool produces the same hashes the verifier expects.
func HashToken(token string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify resolves a bearer token to a Session. Every failure mode returns
// ErrUnauthorized; callers never learn whether the token was unknown,
// malformed, or expired.
func (v *HMACVerifier) Verify(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(token))
	hash := mac.Sum(nil)

	rec, err := v.repo.FindByTokenHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return nil, ErrUnauthorized
	}

	stored, err := hex.DecodeString(rec.TokenHash)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, ErrUnauthorized
	}

	if !rec.ExpiresAt.IsZero() && v.now().After(rec.ExpiresAt) {
		return nil, ErrUnauthorized
	}

	return &Session{
		UserID:  rec.UserID,
		Name:    rec.Name,
		Email:   rec.Email,
		IsAdmin: rec.IsAdmin,
	}, nil
}
