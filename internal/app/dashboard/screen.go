package dashboard

import (
	"context"
	"log"
	"sync"

	"github.com/the-holiday/member-portal-api/internal/app/session"
	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
	"github.com/the-holiday/member-portal-api/internal/ports/out/navigation"
)

// State is the dashboard view state of one screen instance.
type State struct {
	Loading bool
	Profile *domain.MemberProfile
	Plan    *domain.MembershipPlan
	// Plans is the catalog offered for selection; only loaded when Plan is nil.
	Plans []domain.MembershipPlan
}

type ScreenOptions struct {
	// OnChange receives every state the screen applies, in order.
	OnChange func(State)
	Logger   *log.Logger
}

// Screen binds a session watcher to the loaders for one client. Each observed
// session for a new identity starts one load generation; results from a superseded
// generation, or arriving after Deactivate, are dropped.
type Screen struct {
	loader   *Loader
	watcher  *session.Watcher
	onChange func(State)

	// emitMu is held from the generation check through OnChange so pushes keep
	// the order the states were applied in. Acquired before mu.
	emitMu sync.Mutex

	mu        sync.Mutex
	active    bool
	ctx       context.Context
	cancel    context.CancelFunc
	gen       uint64
	loadedFor domain.SubjectID
	state     State
	navigated string
	done      chan struct{}
	doneOnce  sync.Once
}

func NewScreen(ids identity.Service, nav navigation.Navigator, loader *Loader, accessToken string, opts ScreenOptions) *Screen {
	s := &Screen{
		loader:   loader,
		onChange: opts.OnChange,
		state:    State{Loading: true},
		done:     make(chan struct{}),
	}
	s.watcher = session.NewWatcher(ids, navigation.NavigatorFunc(func(path string) {
		// Leaving the view supersedes any load in flight.
		s.mu.Lock()
		s.navigated = path
		s.loadedFor = ""
		s.gen++
		s.state = State{Loading: true}
		s.mu.Unlock()
		s.markDone()
		nav.Redirect(path)
	}), accessToken, session.Options{
		Mode:      session.RequireSession,
		OnSession: s.onSession,
		Logger:    opts.Logger,
	})
	return s
}

// Activate starts watching the session; a present session triggers the first load.
func (s *Screen) Activate(ctx context.Context) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.watcher.Activate(ctx)
}

// Deactivate stops the watcher and abandons any load in flight.
func (s *Screen) Deactivate() {
	s.watcher.Deactivate()

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.gen++
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.markDone()
}

// Wait blocks until the first load settled, the screen navigated away, or ctx ends.
func (s *Screen) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot of the current view state.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Navigated returns the path the screen redirected to, if any.
func (s *Screen) Navigated() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigated
}

func (s *Screen) onSession(sess domain.Session) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if !s.active || s.loadedFor == sess.UserID {
		// Token refreshes for the same member keep the loaded state.
		s.mu.Unlock()
		return
	}
	s.loadedFor = sess.UserID
	s.navigated = ""
	s.gen++
	gen, ctx := s.gen, s.ctx
	s.state = State{Loading: true}
	st := s.state
	s.mu.Unlock()

	s.emit(st)
	go s.load(ctx, gen, sess)
}

func (s *Screen) load(ctx context.Context, gen uint64, sess domain.Session) {
	next := State{}
	// Whatever happens, the generation leaves its loading state once.
	defer func() { s.apply(gen, next) }()

	res := s.loader.LoadProfile(ctx, sess)
	next.Profile, next.Plan = res.Profile, res.Plan
	if res.Plan == nil {
		next.Plans = s.loader.LoadPlanCatalog(ctx)
	}
}

func (s *Screen) apply(gen uint64, next State) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if !s.active || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	s.emit(next)
	s.markDone()
}

func (s *Screen) emit(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}

func (s *Screen) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}
