package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func probeRouter(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seen string
	h := NewSessionMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionTokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen
}

func TestSessionMiddleware_Anonymous(t *testing.T) {
	t.Parallel()
	h, seen := probeRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/member-dashboard", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rr.Code)
	}
	if *seen != "" {
		t.Fatalf("token=%q, want empty", *seen)
	}
}

func TestSessionMiddleware_BearerWinsOverCookie(t *testing.T) {
	t.Parallel()
	h, seen := probeRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/member-dashboard", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if *seen != "header-token" {
		t.Fatalf("token=%q", *seen)
	}
}

func TestSessionMiddleware_CookieFallback(t *testing.T) {
	t.Parallel()
	h, seen := probeRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/member-dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if *seen != "cookie-token" {
		t.Fatalf("token=%q", *seen)
	}
}

func TestSessionMiddleware_MalformedHeader_401(t *testing.T) {
	t.Parallel()

	for _, authz := range []string{"Token abc", "Bearer    "} {
		h, seen := probeRouter(t)
		req := httptest.NewRequest(http.MethodGet, "/member-dashboard", nil)
		req.Header.Set("Authorization", authz)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("authz=%q status=%d", authz, rr.Code)
		}
		if got := decode[errorEnvelope](t, rr); got.Error.Code != "UNAUTHORIZED" {
			t.Fatalf("authz=%q error=%+v", authz, got.Error)
		}
		if *seen != "" {
			t.Fatalf("handler should not run")
		}
	}
}

func TestLiveToken_Sources(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/member-dashboard/live/info?access_token=query-token", nil)
	if got := liveToken(req); got != "query-token" {
		t.Fatalf("query token=%q", got)
	}
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	if got := liveToken(req); got != "cookie-token" {
		t.Fatalf("cookie token=%q", got)
	}
	req.Header.Set("Authorization", "Bearer header-token")
	if got := liveToken(req); got != "header-token" {
		t.Fatalf("header token=%q", got)
	}
}
