package httpapi

import (
	"net/http"
	"strings"
)

// SessionCookieName holds the access token for browser clients.
const SessionCookieName = "holiday-access-token"

// NewSessionMiddleware reads the client's access token from Authorization: Bearer <token>
// or, failing that, the session cookie, and stores it in request context.
//
// The token is not verified here. Anonymous requests pass through; the session watcher
// decides what an absent or invalid session means for each view.
func NewSessionMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(w, r)
			if !ok {
				return
			}
			if token == "" {
				token = cookieToken(r)
			}
			next.ServeHTTP(w, r.WithContext(WithSessionToken(r.Context(), token)))
		})
	}
}

// bearerToken returns the bearer token, "" when no Authorization header is present, and
// ok=false after writing a 401 for a malformed header.
func bearerToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return "", true
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "malformed Authorization header", nil)
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	if raw == "" {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
		return "", false
	}
	return raw, true
}

func cookieToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

// liveToken resolves the token of a realtime connection. Browsers cannot set headers on
// every transport, so the cookie and an access_token query parameter are accepted too.
func liveToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")); t != "" {
			return t
		}
	}
	if t := cookieToken(r); t != "" {
		return t
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}
