package session

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	memclock "github.com/the-holiday/member-portal-api/internal/adapters/memory/clock"
	memidentity "github.com/the-holiday/member-portal-api/internal/adapters/memory/identity"
	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/platform/authevents"
	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
	"github.com/the-holiday/member-portal-api/internal/ports/out/navigation"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) Redirect(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

type harness struct {
	bus *authevents.Bus
	ids *memidentity.Service
	nav *recorder
}

func newHarness(t *testing.T) harness {
	t.Helper()
	bus := authevents.NewBus()
	clk := memclock.NewManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	ids := memidentity.NewService(clk, memidentity.Options{Bus: bus, HashCost: bcrypt.MinCost})
	return harness{bus: bus, ids: ids, nav: &recorder{}}
}

func (h harness) signUp(t *testing.T) domain.Session {
	t.Helper()
	sess, err := h.ids.SignUp(context.Background(), "asha@example.com", "secret1", identity.SignUpMetadata{FullName: "Asha"})
	if err != nil || sess == nil {
		t.Fatalf("SignUp: sess=%v err=%v", sess, err)
	}
	return *sess
}

func TestWatcher_NoSessionRedirectsOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	w := NewWatcher(h.ids, h.nav, "", Options{Mode: RequireSession})
	w.Activate(context.Background())
	w.Activate(context.Background())

	if got := h.nav.got(); len(got) != 1 || got[0] != navigation.PathLogin {
		t.Fatalf("redirects=%v", got)
	}
	if w.Session() != nil {
		t.Fatalf("expected no session")
	}
}

func TestWatcher_SessionPresentHandsOffSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	sess := h.signUp(t)

	var seen []domain.Session
	w := NewWatcher(h.ids, h.nav, sess.AccessToken, Options{
		Mode:      RequireSession,
		OnSession: func(s domain.Session) { seen = append(seen, s) },
	})
	w.Activate(context.Background())
	defer w.Deactivate()

	if got := h.nav.got(); len(got) != 0 {
		t.Fatalf("unexpected redirects %v", got)
	}
	if len(seen) != 1 || seen[0].UserID != sess.UserID {
		t.Fatalf("OnSession calls=%+v", seen)
	}
	if got := w.Session(); got == nil || got.AccessToken != sess.AccessToken {
		t.Fatalf("Session()=%+v", got)
	}
}

func TestWatcher_DuplicateSignOutNotificationsRedirectOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	sess := h.signUp(t)
	w := NewWatcher(h.ids, h.nav, sess.AccessToken, Options{Mode: RequireSession})
	w.Activate(context.Background())
	defer w.Deactivate()

	if err := h.ids.SignOut(context.Background(), sess.AccessToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	h.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventSignedOut})
	h.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventSignedOut})

	if got := h.nav.got(); len(got) != 1 || got[0] != navigation.PathLogin {
		t.Fatalf("redirects=%v", got)
	}
}

func TestWatcher_ConcurrentNotificationsRedirectOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	sess := h.signUp(t)
	w := NewWatcher(h.ids, h.nav, sess.AccessToken, Options{Mode: RequireSession})
	w.Activate(context.Background())
	defer w.Deactivate()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventSignedOut})
		}()
	}
	wg.Wait()

	if got := h.nav.got(); len(got) != 1 {
		t.Fatalf("redirects=%v", got)
	}
}

func TestWatcher_GuardRearmsAfterSessionReturns(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	sess := h.signUp(t)
	w := NewWatcher(h.ids, h.nav, sess.AccessToken, Options{Mode: RequireSession})
	w.Activate(context.Background())
	defer w.Deactivate()

	h.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventSignedOut})
	h.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventTokenRefreshed, Session: &sess})
	h.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventSignedOut})

	if got := h.nav.got(); len(got) != 2 {
		t.Fatalf("expected one redirect per transition, got %v", got)
	}
}

type failingIdentity struct {
	identity.Service
}

func (failingIdentity) Subscribe(string, identity.Listener) identity.Subscription { return noopSub{} }

func (failingIdentity) GetSession(context.Context, string) (*domain.Session, error) {
	return nil, errors.New("connection refused")
}

type noopSub struct{}

func (noopSub) Unsubscribe() {}

func TestWatcher_LookupErrorTreatedAsSignedOut(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	nav := &recorder{}
	w := NewWatcher(failingIdentity{}, nav, "tok", Options{
		Mode:   RequireSession,
		Logger: log.New(&buf, "", 0),
	})
	w.Activate(context.Background())

	if got := nav.got(); len(got) != 1 || got[0] != navigation.PathLogin {
		t.Fatalf("redirects=%v", got)
	}
	if !strings.Contains(buf.String(), "connection refused") {
		t.Fatalf("expected lookup error to be logged, got %q", buf.String())
	}
}

// slowIdentity holds GetSession until release is closed, then reports a live session.
type slowIdentity struct {
	identity.Service
	mu       sync.Mutex
	listener identity.Listener
	entered  chan struct{}
	release  chan struct{}
}

func (s *slowIdentity) Subscribe(_ string, l identity.Listener) identity.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
	return noopSub{}
}

func (s *slowIdentity) GetSession(_ context.Context, token string) (*domain.Session, error) {
	close(s.entered)
	<-s.release
	return &domain.Session{UserID: "u1", AccessToken: token}, nil
}

func (s *slowIdentity) fire(ev identity.Event) {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	l(ev)
}

func TestWatcher_LookupOvertakenBySignOutIsDropped(t *testing.T) {
	t.Parallel()

	ids := &slowIdentity{entered: make(chan struct{}), release: make(chan struct{})}
	nav := &recorder{}
	var mu sync.Mutex
	sessions := 0
	w := NewWatcher(ids, nav, "tok", Options{
		Mode: RequireSession,
		OnSession: func(domain.Session) {
			mu.Lock()
			sessions++
			mu.Unlock()
		},
	})

	activated := make(chan struct{})
	go func() {
		w.Activate(context.Background())
		close(activated)
	}()
	<-ids.entered
	ids.fire(identity.Event{Kind: identity.EventSignedOut})
	close(ids.release)
	<-activated

	if got := nav.got(); len(got) != 1 || got[0] != navigation.PathLogin {
		t.Fatalf("redirects=%v", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if sessions != 0 {
		t.Fatalf("OnSession calls=%d", sessions)
	}
	if got := w.Session(); got != nil {
		t.Fatalf("Session()=%+v, want nil", got)
	}
}

func TestWatcher_DeactivateIgnoresLaterNotifications(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	sess := h.signUp(t)
	w := NewWatcher(h.ids, h.nav, sess.AccessToken, Options{Mode: RequireSession})
	w.Activate(context.Background())
	w.Deactivate()
	w.Deactivate()

	if n := h.bus.Len(sess.AccessToken); n != 0 {
		t.Fatalf("listeners still registered: %d", n)
	}
	h.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventSignedOut})
	if got := h.nav.got(); len(got) != 0 {
		t.Fatalf("unexpected redirects %v", got)
	}
}

func TestWatcher_RequireAnonymous(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	w := NewWatcher(h.ids, h.nav, "", Options{Mode: RequireAnonymous})
	w.Activate(context.Background())
	defer w.Deactivate()

	if got := h.nav.got(); len(got) != 0 {
		t.Fatalf("anonymous visitor should stay, got %v", got)
	}

	sess := h.signUp(t)
	w.Rebind(context.Background(), sess.AccessToken)
	// A second notice for the same session must not redirect again.
	h.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventSignedIn, Session: &sess})

	if got := h.nav.got(); len(got) != 1 || got[0] != navigation.PathDashboard {
		t.Fatalf("redirects=%v", got)
	}
	if w.Token() != sess.AccessToken {
		t.Fatalf("Token()=%q", w.Token())
	}
}
