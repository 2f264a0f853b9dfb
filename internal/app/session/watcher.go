package session

import (
	"context"
	"log"
	"sync"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
	"github.com/the-holiday/member-portal-api/internal/ports/out/navigation"
)

// Mode selects which session state a view requires.
type Mode int

const (
	// RequireSession sends members without a session to the login view.
	RequireSession Mode = iota
	// RequireAnonymous sends members who already have a session to the dashboard.
	RequireAnonymous
)

type Options struct {
	Mode Mode
	// OnSession is called, outside any lock, each time a session is observed
	// while in RequireSession mode.
	OnSession func(domain.Session)
	Logger    *log.Logger
}

// Watcher tracks the session of one client and redirects when that client is on
// the wrong side of the login boundary.
//
// Two sources feed it: the identity service's change notifications and one
// immediate lookup on activation. Both go through the same decision, and the
// redirect guard makes every transition to the wrong state produce exactly one
// redirect no matter how many notifications describe it.
type Watcher struct {
	ids  identity.Service
	nav  navigation.Navigator
	opts Options
	log  *log.Logger

	mu         sync.Mutex
	token      string
	gen        uint64
	active     bool
	sub        identity.Subscription
	redirected bool
	current    *domain.Session
	// events counts listener notifications; a lookup that started before the
	// latest one is stale.
	events uint64
}

func NewWatcher(ids identity.Service, nav navigation.Navigator, accessToken string, opts Options) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		ids:   ids,
		nav:   nav,
		opts:  opts,
		log:   logger,
		token: accessToken,
	}
}

// Activate subscribes to session changes and performs the immediate check.
// Calling it on an active watcher is a no-op.
func (w *Watcher) Activate(ctx context.Context) {
	w.mu.Lock()
	if w.active {
		w.mu.Unlock()
		return
	}
	w.active = true
	w.gen++
	gen, token := w.gen, w.token
	w.mu.Unlock()

	w.subscribe(gen, token)
	w.check(ctx, gen, token)
}

// Rebind switches the watcher to a new access token, as after a sign-in, and
// re-runs the immediate check.
func (w *Watcher) Rebind(ctx context.Context, accessToken string) {
	w.mu.Lock()
	if !w.active {
		w.token = accessToken
		w.mu.Unlock()
		return
	}
	old := w.sub
	w.sub = nil
	w.token = accessToken
	w.gen++
	gen, token := w.gen, w.token
	w.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	w.subscribe(gen, token)
	w.check(ctx, gen, token)
}

// Deactivate deregisters the listener. Notifications and lookups that complete
// afterwards are ignored.
func (w *Watcher) Deactivate() {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return
	}
	w.active = false
	w.gen++
	sub := w.sub
	w.sub = nil
	w.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// Session returns the last session observed, or nil.
func (w *Watcher) Session() *domain.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil
	}
	s := *w.current
	return &s
}

// Token returns the access token the watcher is bound to.
func (w *Watcher) Token() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.token
}

// subscribe registers the listener for generation gen. The identity service may
// deliver a notification synchronously, so no lock is held while subscribing.
func (w *Watcher) subscribe(gen uint64, token string) {
	if token == "" {
		return
	}
	sub := w.ids.Subscribe(token, func(ev identity.Event) {
		w.notify(gen, ev.Session)
	})

	w.mu.Lock()
	if w.active && gen == w.gen {
		w.sub = sub
		sub = nil
	}
	w.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (w *Watcher) check(ctx context.Context, gen uint64, token string) {
	w.mu.Lock()
	seen := w.events
	w.mu.Unlock()

	var sess *domain.Session
	if token != "" {
		s, err := w.ids.GetSession(ctx, token)
		if err != nil {
			w.log.Printf("session: lookup failed, treating as signed out: %v", err)
		} else {
			sess = s
		}
	}

	w.mu.Lock()
	if w.events != seen {
		// A notification arrived during the lookup and already decided.
		w.mu.Unlock()
		return
	}
	w.decideLocked(gen, sess)
}

func (w *Watcher) notify(gen uint64, sess *domain.Session) {
	w.mu.Lock()
	if gen == w.gen {
		w.events++
	}
	w.decideLocked(gen, sess)
}

// decideLocked applies sess for generation gen. It is called with w.mu held and
// releases it before redirecting or calling OnSession.
func (w *Watcher) decideLocked(gen uint64, sess *domain.Session) {
	var (
		redirect  string
		onSession func(domain.Session)
		observed  domain.Session
	)

	if !w.active || gen != w.gen {
		w.mu.Unlock()
		return
	}
	if sess != nil {
		s := *sess
		w.current = &s
	} else {
		w.current = nil
	}

	switch w.opts.Mode {
	case RequireSession:
		if sess == nil {
			if !w.redirected {
				w.redirected = true
				redirect = navigation.PathLogin
			}
		} else {
			w.redirected = false
			onSession = w.opts.OnSession
			observed = *sess
		}
	case RequireAnonymous:
		if sess != nil {
			if !w.redirected {
				w.redirected = true
				redirect = navigation.PathDashboard
			}
		} else {
			w.redirected = false
		}
	}
	w.mu.Unlock()

	if redirect != "" {
		w.nav.Redirect(redirect)
	}
	if onSession != nil {
		onSession(observed)
	}
}
