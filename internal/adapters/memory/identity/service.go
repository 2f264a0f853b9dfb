package identity

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/platform/authevents"
	"github.com/the-holiday/member-portal-api/internal/ports/out/clock"
	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
)

const minPasswordLen = 6

// SignUpHook runs after an identity is created, the way a database trigger
// provisions the member's profile row in the hosted backend.
type SignUpHook func(ctx context.Context, userID domain.SubjectID, email string, meta identity.SignUpMetadata) error

type Options struct {
	// TTL is the lifetime of issued sessions. Defaults to one hour.
	TTL time.Duration
	// HashCost is the bcrypt cost. Defaults to bcrypt.DefaultCost.
	HashCost int
	// RequireConfirmation makes SignUp return no session, as when email confirmation is on.
	RequireConfirmation bool
	OnSignUp            SignUpHook
	// Bus receives auth events; a private bus is created when nil.
	Bus    *authevents.Bus
	Logger *log.Logger
}

type user struct {
	id       domain.SubjectID
	email    string
	hash     []byte
	fullName string
}

// Service is an in-process identity service for local development and tests.
// It is safe for concurrent use.
type Service struct {
	clock clock.Clock
	opts  Options
	bus   *authevents.Bus
	log   *log.Logger

	mu       sync.Mutex
	byEmail  map[string]*user
	sessions map[string]domain.Session
}

var _ identity.Service = (*Service)(nil)

func NewService(clk clock.Clock, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	bus := opts.Bus
	if bus == nil {
		bus = authevents.NewBus()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		clock:    clk,
		opts:     opts,
		bus:      bus,
		log:      logger,
		byEmail:  make(map[string]*user),
		sessions: make(map[string]domain.Session),
	}
}

func (s *Service) Subscribe(accessToken string, l identity.Listener) identity.Subscription {
	return s.bus.Subscribe(accessToken, l)
}

func (s *Service) GetSession(ctx context.Context, accessToken string) (*domain.Session, error) {
	_ = ctx
	if accessToken == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[accessToken]
	if !ok {
		return nil, nil
	}
	if sess.Expired(s.clock.Now()) {
		delete(s.sessions, accessToken)
		return nil, nil
	}
	return &sess, nil
}

func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (domain.Session, error) {
	_ = ctx
	key := emailKey(email)

	s.mu.Lock()
	u, ok := s.byEmail[key]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return domain.Session{}, &identity.AuthError{
			Status:  400,
			Code:    "invalid_credentials",
			Message: "Invalid login credentials",
			Err:     identity.ErrInvalidCredentials,
		}
	}

	sess := s.issue(u)
	s.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventSignedIn, Session: &sess})
	return sess, nil
}

func (s *Service) SignUp(ctx context.Context, email, password string, meta identity.SignUpMetadata) (*domain.Session, error) {
	email = domain.NormalizeEmail(email)
	if utf8.RuneCountInString(password) < minPasswordLen {
		return nil, &identity.AuthError{
			Status:  422,
			Code:    "weak_password",
			Message: fmt.Sprintf("Password should be at least %d characters.", minPasswordLen),
			Err:     identity.ErrWeakPassword,
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user{
		id:       domain.SubjectID(uuid.NewString()),
		email:    email,
		hash:     hash,
		fullName: meta.FullName,
	}
	key := emailKey(email)
	s.mu.Lock()
	if _, exists := s.byEmail[key]; exists {
		s.mu.Unlock()
		return nil, &identity.AuthError{
			Status:  422,
			Code:    "user_already_exists",
			Message: "User already registered",
			Err:     identity.ErrUserAlreadyRegistered,
		}
	}
	s.byEmail[key] = u
	s.mu.Unlock()

	if s.opts.OnSignUp != nil {
		if err := s.opts.OnSignUp(ctx, u.id, email, meta); err != nil {
			// The identity exists either way; a missing profile renders as an empty dashboard.
			s.log.Printf("identity: signup hook failed for %s: %v", u.id, err)
		}
	}

	if s.opts.RequireConfirmation {
		return nil, nil
	}
	sess := s.issue(u)
	s.bus.Publish(sess.AccessToken, identity.Event{Kind: identity.EventSignedIn, Session: &sess})
	return &sess, nil
}

// SignOut ends the session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	_ = ctx
	s.mu.Lock()
	_, ok := s.sessions[accessToken]
	delete(s.sessions, accessToken)
	s.mu.Unlock()
	if ok {
		s.bus.Publish(accessToken, identity.Event{Kind: identity.EventSignedOut})
	}
	return nil
}

// Refresh extends a live session by one TTL and notifies its listeners.
func (s *Service) Refresh(ctx context.Context, accessToken string) (domain.Session, error) {
	_ = ctx
	s.mu.Lock()
	sess, ok := s.sessions[accessToken]
	now := s.clock.Now()
	if !ok || sess.Expired(now) {
		s.mu.Unlock()
		return domain.Session{}, identity.ErrInvalidCredentials
	}
	sess.ExpiresAt = now.Add(s.opts.TTL)
	s.sessions[accessToken] = sess
	s.mu.Unlock()

	s.bus.Publish(accessToken, identity.Event{Kind: identity.EventTokenRefreshed, Session: &sess})
	return sess, nil
}

func (s *Service) issue(u *user) domain.Session {
	sess := domain.Session{
		UserID:      u.id,
		Email:       u.email,
		AccessToken: uuid.NewString(),
		ExpiresAt:   s.clock.Now().Add(s.opts.TTL),
	}
	s.mu.Lock()
	s.sessions[sess.AccessToken] = sess
	s.mu.Unlock()
	return sess
}

func emailKey(email string) string {
	return strings.ToLower(domain.NormalizeEmail(email))
}
