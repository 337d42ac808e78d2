package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/kstorelabs/kstore-cart/internal/domain/session"
)

type sessionCtxKey struct{}

// sessionFrom returns the verified session attached by requireAuth, or nil.
func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*session.Session)
	return s
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

// requireAuth verifies the bearer token and attaches the session to the
// request context. Unverified requests get a uniform 401.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.verifier.Verify(r.Context(), bearerToken(r))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin is requireAuth plus an admin check.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if sess := sessionFrom(r.Context()); sess == nil || !sess.IsAdmin {
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	})
}

// cartSessionID resolves which cart a request addresses. Guests carry an
// X-Session-ID they generate client-side; authenticated requests fall back
// to a per-user key so the cart follows the account.
func cartSessionID(r *http.Request) string {
	if sid := r.Header.Get("X-Session-ID"); sid != "" {
		return sid
	}
	if sess := sessionFrom(r.Context()); sess != nil {
		return "user:" + sess.UserID
	}
	return ""
}
