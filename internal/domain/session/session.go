// Package session verifies bearer tokens and gates checkout. There is a
// single verification path: tests substitute the Verifier interface instead
// of branching on an environment flag.
package session

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/kstorelabs/kstore-cart/internal/domain/cart"
)

// ErrUnauthorized is returned for any token that does not resolve to a
// live session. The message is deliberately uniform.
var ErrUnauthorized = errors.New("unauthorized")

// Session is the verified identity attached to a request.
type Session struct {
	UserID  string
	Name    string
	Email   string
	IsAdmin bool
}

// Record is a stored session row keyed by the HMAC of its token.
type Record struct {
	UserID    string
	TokenHash string
	Name      string
	Email     string
	IsAdmin   bool
	ExpiresAt time.Time
}

// Repository provides session lookup by token hash.
type Repository interface {
	FindByTokenHash(ctx context.Context, hash string) (*Record, error)
}

// Verifier resolves a bearer token to a Session.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Session, error)
}

// CanCheckout reports whether the session may proceed to checkout: an
// authenticated user and a non-empty cart.
func CanCheckout(sess *Session, c *cart.Cart) bool {
	return sess != nil && c != nil && len(c.Items) > 0
}
