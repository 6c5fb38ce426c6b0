package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// SessionCookie is the name of the cookie holding the session token.
const SessionCookie = "session"

// TokenFromRequest returns the session token from the cookie or an
// "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// Require rejects requests without a valid session and installs the session
// in the request context otherwise.
func (c *SessionCodec) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := c.Decode(TokenFromRequest(r))
		if err != nil {
			if !errors.Is(err, ErrNoSession) {
				slog.Warn("Rejected session", "path", r.URL.Path, "error", err)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success":   false,
				"error":     "authentication required",
				"errorKind": "Unauthorized",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}
