package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/platform/auth/jwtverifier"
	"github.com/the-holiday/member-portal-api/internal/platform/authevents"
	"github.com/the-holiday/member-portal-api/internal/ports/out/clock"
	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
)

// TokenVerifier validates access tokens locally.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (jwtverifier.Claims, error)
}

type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Bus        *authevents.Bus
	Logger     *log.Logger
}

// Client is an identity.Service backed by the hosted auth API (/auth/v1).
//
// Sessions are stateless on this side: GetSession verifies the token signature and
// claims, and consults a local set of tokens signed out through this process.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	verifier TokenVerifier
	clock    clock.Clock
	bus      *authevents.Bus
	log      *log.Logger

	mu      sync.Mutex
	revoked map[string]time.Time
}

var _ identity.Service = (*Client)(nil)

func NewClient(baseURL, apiKey string, verifier TokenVerifier, clk clock.Clock, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	bus := opts.Bus
	if bus == nil {
		bus = authevents.NewBus()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		http:     hc,
		verifier: verifier,
		clock:    clk,
		bus:      bus,
		log:      logger,
		revoked:  make(map[string]time.Time),
	}
}

func (c *Client) Subscribe(accessToken string, l identity.Listener) identity.Subscription {
	return c.bus.Subscribe(accessToken, l)
}

// GetSession returns nil for tokens that fail verification or were signed out.
func (c *Client) GetSession(ctx context.Context, accessToken string) (*domain.Session, error) {
	if accessToken == "" || c.isRevoked(accessToken) {
		return nil, nil
	}
	claims, err := c.verifier.Verify(ctx, accessToken)
	if err != nil {
		if errors.Is(err, jwtverifier.ErrUnauthorized) {
			return nil, nil
		}
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	return &domain.Session{
		UserID:      domain.SubjectID(claims.Subject),
		Email:       claims.Email,
		AccessToken: accessToken,
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   int64  `json:"expires_at"`
	User        *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (domain.Session, error) {
	var out tokenResponse
	err := c.post(ctx, "/token?grant_type=password", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return domain.Session{}, err
	}
	if out.AccessToken == "" {
		return domain.Session{}, errors.New("token response missing access_token")
	}
	sess := c.sessionFrom(out)
	c.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventSignedIn, Session: &sess})
	return sess, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, meta identity.SignUpMetadata) (*domain.Session, error) {
	path := "/signup"
	if meta.RedirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(meta.RedirectTo)
	}
	var out tokenResponse
	err := c.post(ctx, path, "", map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]any{"full_name": meta.FullName},
	}, &out)
	if err != nil {
		return nil, err
	}
	// Without an access token the account awaits email confirmation.
	if out.AccessToken == "" {
		return nil, nil
	}
	sess := c.sessionFrom(out)
	c.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventSignedIn, Session: &sess})
	return &sess, nil
}

// SignOut revokes the session remotely, then locally. A token the remote side no
// longer recognizes counts as signed out.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	err := c.post(ctx, "/logout", accessToken, nil, nil)
	var ae *identity.AuthError
	if err != nil && !(errors.As(err, &ae) && (ae.Status == http.StatusUnauthorized || ae.Status == http.StatusForbidden || ae.Status == http.StatusNotFound)) {
		return err
	}
	c.revoke(accessToken)
	c.bus.Publish(accessToken, identity.Event{Kind: identity.EventSignedOut})
	return nil
}

func (c *Client) sessionFrom(out tokenResponse) domain.Session {
	sess := domain.Session{AccessToken: out.AccessToken}
	if out.User != nil {
		sess.UserID = domain.SubjectID(out.User.ID)
		sess.Email = out.User.Email
	}
	switch {
	case out.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(out.ExpiresAt, 0).UTC()
	case out.ExpiresIn > 0:
		sess.ExpiresAt = c.clock.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return sess
}

// revoke resolves the token's expiry before locking; Verify may fetch the JWKS.
func (c *Client) revoke(token string) {
	now := c.clock.Now()
	until := now.Add(24 * time.Hour)
	if claims, err := c.verifier.Verify(context.Background(), token); err == nil && !claims.ExpiresAt.IsZero() {
		until = claims.ExpiresAt
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for t, exp := range c.revoked {
		if !now.Before(exp) {
			delete(c.revoked, t)
		}
	}
	c.revoked[token] = until
}

func (c *Client) isRevoked(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.revoked[token]
	return ok && c.clock.Now().Before(until)
}

func (c *Client) post(ctx context.Context, path, bearer string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal auth request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return parseError(resp.StatusCode, b)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}
