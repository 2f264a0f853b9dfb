package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	memclock "github.com/the-holiday/member-portal-api/internal/adapters/memory/clock"
	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/platform/auth/jwks_testutil"
	"github.com/the-holiday/member-portal-api/internal/platform/auth/jwtverifier"
	"github.com/the-holiday/member-portal-api/internal/platform/config"
	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
)

const (
	testSecret   = "super-secret-jwt-token-with-at-least-32-characters"
	testIssuer   = "http://auth.test/auth/v1"
	testAudience = "authenticated"
	testUserID   = "0b3c6f8e-58a4-4d0e-9a0b-7a4f3d1e2c11"
)

type fakeAuth struct {
	t       *testing.T
	clk     *memclock.ManualClock
	logouts atomic.Int32
	confirm bool
}

func (f *fakeAuth) mint(email string) string {
	tok, err := jwks_testutil.MintHS256JWT(testSecret, testIssuer, testAudience, testUserID, email, f.clk.Now(), time.Hour)
	if err != nil {
		f.t.Fatalf("mint: %v", err)
	}
	return tok
}

func (f *fakeAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") != "anon-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var body struct {
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Data     map[string]any `json:"data"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/auth/v1/token":
		if r.URL.Query().Get("grant_type") != "password" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body.Password != "secret1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
			return
		}
		f.writeSession(w, body.Email)
	case "/auth/v1/signup":
		if body.Email == "taken@example.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`))
			return
		}
		if body.Data["full_name"] != "Asha Rahman" {
			f.t.Errorf("full_name metadata=%v", body.Data["full_name"])
		}
		if got := r.URL.Query().Get("redirect_to"); got != "http://localhost:8080/member-dashboard" {
			f.t.Errorf("redirect_to=%q", got)
		}
		if f.confirm {
			_, _ = w.Write([]byte(`{"id":"` + testUserID + `","email":"` + body.Email + `","confirmation_sent_at":"2026-03-01T09:00:00Z"}`))
			return
		}
		f.writeSession(w, body.Email)
	case "/auth/v1/logout":
		f.logouts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAuth) writeSession(w http.ResponseWriter, email string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": f.mint(email),
		"token_type":   "bearer",
		"expires_in":   3600,
		"expires_at":   f.clk.Now().Add(time.Hour).Unix(),
		"user":         map[string]any{"id": testUserID, "email": email},
	})
}

func newTestClient(t *testing.T, confirm bool) (*Client, *fakeAuth) {
	t.Helper()
	return newTestClientWrapped(t, confirm, func(v TokenVerifier) TokenVerifier { return v })
}

func newTestClientWrapped(t *testing.T, confirm bool, wrap func(TokenVerifier) TokenVerifier) (*Client, *fakeAuth) {
	t.Helper()
	clk := memclock.NewManualClock(time.Now().Truncate(time.Second))
	fake := &fakeAuth{t: t, clk: clk, confirm: confirm}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	verifier := jwtverifier.NewWithOptions(config.JWTConfig{
		Issuer:   testIssuer,
		Audience: testAudience,
		Secret:   testSecret,
	}, nil, clk)
	return NewClient(srv.URL+"/auth/v1", "anon-key", wrap(verifier), clk, Options{HTTPClient: srv.Client()}), fake
}

// gatedVerifier holds verification of one token until release is closed.
type gatedVerifier struct {
	inner   TokenVerifier
	token   string
	entered chan struct{}
	once    sync.Once
	release chan struct{}
}

func (g *gatedVerifier) Verify(ctx context.Context, token string) (jwtverifier.Claims, error) {
	if token == g.token {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	return g.inner.Verify(ctx, token)
}

func TestClient_SignInAndGetSession(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, false)
	ctx := context.Background()

	sess, err := c.SignInWithPassword(ctx, "asha@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if string(sess.UserID) != testUserID || sess.Email != "asha@example.com" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if !sess.ExpiresAt.Equal(fake.clk.Now().Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", sess.ExpiresAt)
	}

	got, err := c.GetSession(ctx, sess.AccessToken)
	if err != nil || got == nil {
		t.Fatalf("GetSession: got=%v err=%v", got, err)
	}
	if got.UserID != sess.UserID || got.Email != "asha@example.com" {
		t.Fatalf("unexpected verified session: %+v", got)
	}

	fake.clk.Advance(2 * time.Hour)
	if got, _ := c.GetSession(ctx, sess.AccessToken); got != nil {
		t.Fatalf("expected expired token to yield no session")
	}
}

func TestClient_SignInInvalidCredentials(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, false)
	_, err := c.SignInWithPassword(context.Background(), "asha@example.com", "nope")
	if !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err.Error() != "Invalid login credentials" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestClient_SignUp(t *testing.T) {
	t.Parallel()

	meta := identity.SignUpMetadata{FullName: "Asha Rahman", RedirectTo: "http://localhost:8080/member-dashboard"}

	c, _ := newTestClient(t, false)
	sess, err := c.SignUp(context.Background(), "asha@example.com", "secret1", meta)
	if err != nil || sess == nil {
		t.Fatalf("SignUp: sess=%v err=%v", sess, err)
	}

	_, err = c.SignUp(context.Background(), "taken@example.com", "secret1", meta)
	if !errors.Is(err, identity.ErrUserAlreadyRegistered) {
		t.Fatalf("expected ErrUserAlreadyRegistered, got %v", err)
	}

	confirming, _ := newTestClient(t, true)
	sess, err = confirming.SignUp(context.Background(), "asha@example.com", "secret1", meta)
	if err != nil {
		t.Fatalf("SignUp with confirmation: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session when confirmation is required")
	}
}

func TestClient_SignOutRevokesAndPublishes(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, false)
	ctx := context.Background()
	sess, err := c.SignInWithPassword(ctx, "asha@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}

	var kinds []identity.EventKind
	sub := c.Subscribe(sess.AccessToken, func(ev identity.Event) { kinds = append(kinds, ev.Kind) })
	defer sub.Unsubscribe()

	if err := c.SignOut(ctx, sess.AccessToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if fake.logouts.Load() != 1 {
		t.Fatalf("logout calls=%d", fake.logouts.Load())
	}
	if len(kinds) != 1 || kinds[0] != identity.EventSignedOut {
		t.Fatalf("unexpected events: %v", kinds)
	}
	if got, _ := c.GetSession(ctx, sess.AccessToken); got != nil {
		t.Fatalf("expected revoked token to yield no session")
	}
}

func TestClient_SignOutDoesNotBlockLookupsWhileVerifying(t *testing.T) {
	t.Parallel()

	gate := &gatedVerifier{entered: make(chan struct{}), release: make(chan struct{})}
	c, _ := newTestClientWrapped(t, false, func(v TokenVerifier) TokenVerifier {
		gate.inner = v
		return gate
	})
	ctx := context.Background()
	leaving, err := c.SignInWithPassword(ctx, "asha@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	staying, err := c.SignInWithPassword(ctx, "rina@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	gate.token = leaving.AccessToken

	signedOut := make(chan error, 1)
	go func() { signedOut <- c.SignOut(ctx, leaving.AccessToken) }()
	<-gate.entered

	looked := make(chan *domain.Session, 1)
	go func() {
		got, _ := c.GetSession(ctx, staying.AccessToken)
		looked <- got
	}()
	select {
	case got := <-looked:
		if got == nil || got.Email != "rina@example.com" {
			t.Fatalf("GetSession=%+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("GetSession blocked behind sign-out verification")
	}

	close(gate.release)
	if err := <-signedOut; err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if got, _ := c.GetSession(ctx, leaving.AccessToken); got != nil {
		t.Fatalf("expected revoked token to yield no session")
	}
}

func TestParseError_LegacyShape(t *testing.T) {
	t.Parallel()

	ae := parseError(http.StatusBadRequest, []byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	if !errors.Is(ae, identity.ErrInvalidCredentials) || ae.Message != "Invalid login credentials" {
		t.Fatalf("unexpected error: %+v", ae)
	}

	ae = parseError(http.StatusBadGateway, []byte(`not json`))
	if ae.Message != "Bad Gateway" || ae.Err != nil {
		t.Fatalf("unexpected error: %+v", ae)
	}
}
