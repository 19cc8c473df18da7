package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	h "eventsignup/internal/delivery/http/helpers"
	"eventsignup/internal/domain"
)

type contextKey string

const accountIDKey contextKey = "accountID"

// IdentityHeader carries an identity-provider key asserted by a trusted upstream gateway.
const IdentityHeader = "X-Line-User-Id"

// SetAccountID returns a context with the acting account ID set. Used by auth middleware.
func SetAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// AccountIDFromContext returns the authenticated account ID from the context, if present.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

// Authenticator resolves the acting account of a request.
// Identities is consulted only when set, which the router does when the identity header is trusted.
type Authenticator struct {
	Verifier   domain.TokenVerifier
	Identities domain.IdentityResolver
	Logger     *slog.Logger
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the account ID in the request context.
// If the token is missing or invalid, it responds with 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return Authenticator{Verifier: verifier, Logger: logger}.Require
}

// Require is the handler wrapper. A bearer token wins over the identity header when both are sent.
func (a Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, status, msg := a.authenticate(r)
		if status != 0 {
			h.WriteJSONError(w, status, h.ErrCodeUnauthorized, msg)
			return
		}
		r = r.WithContext(SetAccountID(r.Context(), accountID))
		next(w, r)
	}
}

func (a Authenticator) authenticate(r *http.Request) (string, int, string) {
	auth := r.Header.Get("Authorization")
	if auth == "" && a.Identities != nil {
		if key := strings.TrimSpace(r.Header.Get(IdentityHeader)); key != "" {
			return a.resolveIdentity(r, key)
		}
	}
	if auth == "" {
		return "", http.StatusUnauthorized, "missing authorization header"
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", http.StatusUnauthorized, "invalid authorization format"
	}
	token := strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", http.StatusUnauthorized, "missing token"
	}
	accountID, err := a.Verifier.Verify(token)
	if err != nil {
		return "", http.StatusUnauthorized, "invalid or expired token"
	}
	return accountID, 0, ""
}

func (a Authenticator) resolveIdentity(r *http.Request, key string) (string, int, string) {
	accountID, err := a.Identities.ResolveIdentity(r.Context(), key)
	if err == nil {
		return accountID, 0, ""
	}
	if !errors.Is(err, domain.ErrUnauthorized) && a.Logger != nil {
		a.Logger.ErrorContext(r.Context(), "resolve identity failed", "err", err)
	}
	return "", http.StatusUnauthorized, "unknown identity"
}
