package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/the-holiday/member-portal-api/internal/app/account"
	"github.com/the-holiday/member-portal-api/internal/app/dashboard"
	"github.com/the-holiday/member-portal-api/internal/app/session"
	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/idempotency"
	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
	"github.com/the-holiday/member-portal-api/internal/ports/out/navigation"
	"github.com/the-holiday/member-portal-api/internal/ports/out/notification"
)

const (
	defaultLoadTimeout = 10 * time.Second
	maxBodyBytes       = 1 << 20
	signupRoute        = "/auth/signup"
)

type ServerOptions struct {
	// CookieSecure marks the session cookie Secure; enable behind HTTPS.
	CookieSecure bool
	// LoadTimeout bounds how long GET /member-dashboard waits for the first load.
	LoadTimeout time.Duration
	Logger      *log.Logger
}

// Server implements the member area endpoints. Every request builds its own watcher or
// screen and tears it down before returning.
type Server struct {
	ids      identity.Service
	accounts *account.Service
	loader   *dashboard.Loader
	idem     idempotency.Store
	opts     ServerOptions
	log      *log.Logger

	liveOnce sync.Once
	live     http.Handler
}

// NewServer wires the handlers. idem may be nil, in which case Idempotency-Key is ignored.
func NewServer(ids identity.Service, accounts *account.Service, loader *dashboard.Loader, idem idempotency.Store, opts ServerOptions) *Server {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaultLoadTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		ids:      ids,
		accounts: accounts,
		loader:   loader,
		idem:     idem,
		opts:     opts,
		log:      logger,
	}
}

type NotificationBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}

type SessionBody struct {
	AccessToken string                       `json:"accessToken"`
	ExpiresAt   nullable.Nullable[time.Time] `json:"expiresAt,omitempty"`
}

// ActionResponse is the outcome of a successful account action.
type ActionResponse struct {
	Notification *NotificationBody        `json:"notification,omitempty"`
	Redirect     nullable.Nullable[string] `json:"redirect,omitempty"`
	Session      *SessionBody              `json:"session,omitempty"`
}

type RedirectResponse struct {
	Redirect string `json:"redirect"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// GET /member-login
//
// A client that already has a session is sent to the dashboard.
func (s *Server) GetMemberLogin(w http.ResponseWriter, r *http.Request) {
	token, _ := SessionTokenFromContext(r.Context())
	nav := &navRecorder{}
	wch := session.NewWatcher(s.ids, nav, token, session.Options{
		Mode:   session.RequireAnonymous,
		Logger: s.log,
	})
	wch.Activate(r.Context())
	defer wch.Deactivate()

	if path := nav.Path(); path != "" {
		writeRedirect(w, path)
		return
	}
	writeJSON(w, http.StatusOK, account.RenderLogin(account.Mode(r.URL.Query().Get("mode"))))
}

// GET /member-dashboard
func (s *Server) GetMemberDashboard(w http.ResponseWriter, r *http.Request) {
	token, _ := SessionTokenFromContext(r.Context())
	nav := &navRecorder{}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.LoadTimeout)
	defer cancel()

	screen := dashboard.NewScreen(s.ids, nav, s.loader, token, dashboard.ScreenOptions{Logger: s.log})
	screen.Activate(ctx)
	defer screen.Deactivate()

	if err := screen.Wait(ctx); err != nil {
		s.log.Printf("httpapi: dashboard load did not settle: %v", err)
		writeError(w, r, http.StatusGatewayTimeout, "LOAD_TIMEOUT", "dashboard did not load in time", nil)
		return
	}
	if path := nav.Path(); path != "" {
		writeRedirect(w, path)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Render(screen.State()))
}

// POST /auth/login
func (s *Server) PostLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if _, ok := decodeBody(w, r, &req); !ok {
		return
	}
	notes := &noteRecorder{}
	nav := &navRecorder{}
	wch := s.anonymousWatcher(r, nav)
	defer wch.Deactivate()

	sess, err := s.accounts.SignIn(r.Context(), notes, req.Email, req.Password)
	if err != nil {
		s.writeActionError(w, r, notes, err)
		return
	}
	wch.Rebind(r.Context(), sess.AccessToken)
	setSessionCookie(w, sess, s.opts.CookieSecure)
	writeJSON(w, http.StatusOK, actionResponse(notes, nav, &sess))
}

// POST /auth/signup
//
// Honors Idempotency-Key: a retried request with the same key and body replays the
// stored response instead of creating a second identity.
func (s *Server) PostSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	raw, ok := decodeBody(w, r, &req)
	if !ok {
		return
	}

	fp, useIdem := s.signupFingerprint(r, req, raw)
	if useIdem {
		rec, found, err := s.idem.Get(r.Context(), fp)
		if err != nil {
			s.log.Printf("httpapi: idempotency lookup failed: %v", err)
		} else if found {
			s.replay(w, r, req, rec)
			return
		}
	}

	notes := &noteRecorder{}
	nav := &navRecorder{}
	wch := s.anonymousWatcher(r, nav)
	defer wch.Deactivate()

	var (
		status int
		body   any
		sess   *domain.Session
	)
	created, err := s.accounts.SignUp(r.Context(), notes, req.Email, req.Password, req.FullName)
	if err != nil {
		status, body = s.actionError(r, notes, err)
	} else {
		sess = created
		if sess != nil {
			wch.Rebind(r.Context(), sess.AccessToken)
		}
		status, body = http.StatusOK, actionResponse(notes, nav, sess)
	}

	b, err := json.Marshal(body)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	if useIdem && status < http.StatusInternalServerError {
		s.remember(r, fp, status, body)
	}
	if sess != nil {
		setSessionCookie(w, *sess, s.opts.CookieSecure)
	}
	writeRaw(w, status, "application/json", b)
}

// POST /auth/logout
func (s *Server) PostLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := SessionTokenFromContext(r.Context())
	notes := &noteRecorder{}
	nav := &navRecorder{}
	s.accounts.SignOut(r.Context(), notes, nav, token)
	clearSessionCookie(w, s.opts.CookieSecure)
	writeJSON(w, http.StatusOK, actionResponse(notes, nav, nil))
}

// anonymousWatcher mirrors the login view during an account action: once the action
// yields a session, Rebind makes it navigate to the dashboard.
//
// The watcher starts unbound: a stale cookie must not short-circuit the action.
func (s *Server) anonymousWatcher(r *http.Request, nav navigation.Navigator) *session.Watcher {
	wch := session.NewWatcher(s.ids, nav, "", session.Options{
		Mode:   session.RequireAnonymous,
		Logger: s.log,
	})
	wch.Activate(r.Context())
	return wch
}

func (s *Server) signupFingerprint(r *http.Request, req signupRequest, raw []byte) (idempotency.Fingerprint, bool) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" || s.idem == nil {
		return idempotency.Fingerprint{}, false
	}
	sum := sha256.Sum256(raw)
	return idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Scope:    strings.ToLower(domain.NormalizeEmail(req.Email)),
		Method:   http.MethodPost,
		Route:    signupRoute,
		BodyHash: hex.EncodeToString(sum[:]),
	}, true
}

// remember stores a signup outcome for replay. Sessions are never stored: a replay
// signs the member in again instead.
func (s *Server) remember(r *http.Request, fp idempotency.Fingerprint, status int, body any) {
	if ar, ok := body.(ActionResponse); ok {
		ar.Session = nil
		body = ar
	}
	b, err := json.Marshal(body)
	if err != nil {
		s.log.Printf("httpapi: encode idempotency record: %v", err)
		return
	}
	if err := s.idem.Put(r.Context(), fp, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        b,
	}); err != nil {
		s.log.Printf("httpapi: idempotency store failed: %v", err)
	}
}

// replay answers a retried signup from its stored record. When the original signup
// opened a session (it redirected to the dashboard), a fresh one is issued with the
// same credentials, which the matching body hash guarantees.
func (s *Server) replay(w http.ResponseWriter, r *http.Request, req signupRequest, rec idempotency.Record) {
	w.Header().Set("Idempotent-Replayed", "true")
	ct := rec.ContentType
	if ct == "" {
		ct = "application/json"
	}

	var prior ActionResponse
	if rec.StatusCode != http.StatusOK || json.Unmarshal(rec.Body, &prior) != nil || !redirectsTo(prior, navigation.PathDashboard) {
		writeRaw(w, rec.StatusCode, ct, rec.Body)
		return
	}

	sess, err := s.accounts.SignIn(r.Context(), &noteRecorder{}, req.Email, req.Password)
	if err != nil {
		s.writeActionError(w, r, &noteRecorder{}, err)
		return
	}
	fresh := actionResponse(&noteRecorder{}, &navRecorder{}, &sess)
	prior.Session = fresh.Session
	setSessionCookie(w, sess, s.opts.CookieSecure)
	writeJSON(w, http.StatusOK, prior)
}

func redirectsTo(ar ActionResponse, path string) bool {
	if !ar.Redirect.IsSpecified() || ar.Redirect.IsNull() {
		return false
	}
	got, err := ar.Redirect.Get()
	return err == nil && got == path
}

func (s *Server) actionError(r *http.Request, notes *noteRecorder, err error) (int, ErrorResponse) {
	status, er := accountErrorResponse(r, err)
	if n, ok := notes.Last(); ok {
		er.Notification = notificationBody(n)
	}
	return status, er
}

func (s *Server) writeActionError(w http.ResponseWriter, r *http.Request, notes *noteRecorder, err error) {
	status, er := s.actionError(r, notes, err)
	writeJSON(w, status, er)
}

func actionResponse(notes *noteRecorder, nav *navRecorder, sess *domain.Session) ActionResponse {
	var out ActionResponse
	if n, ok := notes.Last(); ok {
		out.Notification = notificationBody(n)
	}
	if path := nav.Path(); path != "" {
		out.Redirect = nullable.NewNullableWithValue(path)
	}
	if sess != nil {
		out.Session = &SessionBody{AccessToken: sess.AccessToken}
		if !sess.ExpiresAt.IsZero() {
			out.Session.ExpiresAt = nullable.NewNullableWithValue(sess.ExpiresAt.UTC())
		}
	}
	return out
}

func notificationBody(n notification.Notification) *NotificationBody {
	variant := n.Variant
	if variant == "" {
		variant = notification.VariantDefault
	}
	return &NotificationBody{Title: n.Title, Description: n.Description, Variant: string(variant)}
}

// decodeBody reads a JSON body into v and returns the raw bytes. On failure it writes
// a 400 and returns ok=false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "request body too large", nil)
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "could not read request body", nil)
		return nil, false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "request body must be a JSON object", nil)
		return nil, false
	}
	return raw, true
}

func writeRedirect(w http.ResponseWriter, path string) {
	w.Header().Set("Location", path)
	writeJSON(w, http.StatusSeeOther, RedirectResponse{Redirect: path})
}

func writeRaw(w http.ResponseWriter, status int, contentType string, b []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func setSessionCookie(w http.ResponseWriter, sess domain.Session, secure bool) {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !sess.ExpiresAt.IsZero() {
		c.Expires = sess.ExpiresAt.UTC()
	}
	http.SetCookie(w, c)
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// navRecorder keeps the last redirect a watcher issued during one request.
type navRecorder struct {
	mu   sync.Mutex
	path string
}

func (n *navRecorder) Redirect(path string) {
	n.mu.Lock()
	n.path = path
	n.mu.Unlock()
}

func (n *navRecorder) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

// noteRecorder collects the notifications an account action raised.
type noteRecorder struct {
	mu    sync.Mutex
	notes []notification.Notification
}

func (n *noteRecorder) Notify(note notification.Notification) {
	n.mu.Lock()
	n.notes = append(n.notes, note)
	n.mu.Unlock()
}

func (n *noteRecorder) Last() (notification.Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notes) == 0 {
		return notification.Notification{}, false
	}
	return n.notes[len(n.notes)-1], true
}
