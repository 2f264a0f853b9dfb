package identity

import (
	"context"

	"github.com/the-holiday/member-portal-api/internal/domain"
)

// EventKind names an auth state transition.
type EventKind string

const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is one auth state change notification. Session is nil when no session remains.
type Event struct {
	Kind    EventKind
	Session *domain.Session
}

// Listener receives auth state changes. It may be called from any goroutine.
type Listener func(Event)

// Subscription is a registered listener. Unsubscribe is safe to call more than once.
type Subscription interface {
	Unsubscribe()
}

// SignUpMetadata is stored with a new identity.
type SignUpMetadata struct {
	FullName string
	// RedirectTo is where the confirmation email should send the member.
	RedirectTo string
}

// Service is the remote identity service.
//
// Session lookups are keyed by the access token the client presents; the service never
// relies on ambient state.
type Service interface {
	// Subscribe registers a listener for state changes of the session identified by accessToken.
	Subscribe(accessToken string, l Listener) Subscription

	// GetSession returns the current session for accessToken, or nil when there is none.
	GetSession(ctx context.Context, accessToken string) (*domain.Session, error)

	SignInWithPassword(ctx context.Context, email, password string) (domain.Session, error)

	// SignUp creates an identity. The returned session is nil when the service requires
	// email confirmation before the first sign-in.
	SignUp(ctx context.Context, email, password string, meta SignUpMetadata) (*domain.Session, error)

	SignOut(ctx context.Context, accessToken string) error
}
