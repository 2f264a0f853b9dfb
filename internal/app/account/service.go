package account

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
	"github.com/the-holiday/member-portal-api/internal/ports/out/navigation"
	"github.com/the-holiday/member-portal-api/internal/ports/out/notification"
)

const MinPasswordLen = 6

const genericFailure = "An error occurred. Please try again."

// Service runs the member account actions and reports their outcome as notifications.
type Service struct {
	ids    identity.Service
	origin string
	log    *log.Logger
}

// NewService creates the account service. publicOrigin is the browser-facing origin
// used to build the signup confirmation link.
func NewService(ids identity.Service, publicOrigin string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		ids:    ids,
		origin: strings.TrimRight(publicOrigin, "/"),
		log:    logger,
	}
}

func (s *Service) SignIn(ctx context.Context, n notification.Notifier, email, password string) (domain.Session, error) {
	email = domain.NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		s.notifyError(n, err)
		return domain.Session{}, err
	}

	sess, err := s.ids.SignInWithPassword(ctx, email, password)
	if err != nil {
		ae := s.mapAuthError(err)
		s.notifyError(n, ae)
		return domain.Session{}, ae
	}
	n.Notify(notification.Notification{
		Title:       "Welcome back!",
		Description: "Successfully logged in to your member account.",
		Variant:     notification.VariantDefault,
	})
	return sess, nil
}

// SignUp creates the member's identity. The session is nil when the identity
// service asks the member to confirm their email first.
func (s *Service) SignUp(ctx context.Context, n notification.Notifier, email, password, fullName string) (*domain.Session, error) {
	email = domain.NormalizeEmail(email)
	fullName = domain.NormalizeHumanName(fullName)
	if err := validateCredentials(email, password); err != nil {
		s.notifyError(n, err)
		return nil, err
	}
	if fullName == "" {
		err := validationError("Full name is required", map[string]any{"field": "fullName"})
		s.notifyError(n, err)
		return nil, err
	}

	sess, err := s.ids.SignUp(ctx, email, password, identity.SignUpMetadata{
		FullName:   fullName,
		RedirectTo: s.origin + navigation.PathDashboard,
	})
	if err != nil {
		ae := s.mapAuthError(err)
		s.notifyError(n, ae)
		return nil, ae
	}
	n.Notify(notification.Notification{
		Title:       "Account created!",
		Description: "Welcome to The Holiday membership.",
		Variant:     notification.VariantDefault,
	})
	return sess, nil
}

// SignOut ends the session and sends the member home. A failed remote sign-out is
// logged; the member is signed out locally either way.
func (s *Service) SignOut(ctx context.Context, n notification.Notifier, nav navigation.Navigator, accessToken string) {
	if accessToken != "" {
		if err := s.ids.SignOut(ctx, accessToken); err != nil {
			s.log.Printf("account: sign out failed: %v", err)
		}
	}
	n.Notify(notification.Notification{
		Title:       "Logged out",
		Description: "You have been logged out successfully.",
		Variant:     notification.VariantDefault,
	})
	nav.Redirect(navigation.PathHome)
}

func validateCredentials(email, password string) *Error {
	switch {
	case email == "":
		return validationError("Email is required", map[string]any{"field": "email"})
	case !strings.Contains(email, "@"):
		return validationError("Enter a valid email address", map[string]any{"field": "email"})
	case password == "":
		return validationError("Password is required", map[string]any{"field": "password"})
	case utf8.RuneCountInString(password) < MinPasswordLen:
		return validationError("Password must be at least 6 characters", map[string]any{
			"field":     "password",
			"minLength": MinPasswordLen,
		})
	}
	return nil
}

func (s *Service) mapAuthError(err error) *Error {
	var ae *identity.AuthError
	if !errors.As(err, &ae) {
		s.log.Printf("account: identity service error: %v", err)
		return &Error{Status: http.StatusBadGateway, Code: "AUTH_UNAVAILABLE", Message: genericFailure}
	}
	msg := ae.Message
	if msg == "" {
		msg = genericFailure
	}
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return &Error{Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS", Message: msg}
	case errors.Is(err, identity.ErrUserAlreadyRegistered):
		return &Error{Status: http.StatusConflict, Code: "USER_ALREADY_REGISTERED", Message: msg}
	case errors.Is(err, identity.ErrWeakPassword):
		return &Error{Status: http.StatusUnprocessableEntity, Code: "WEAK_PASSWORD", Message: msg}
	}
	status := ae.Status
	if status < 400 || status >= 500 {
		status = http.StatusBadGateway
	}
	return &Error{Status: status, Code: "AUTH_ERROR", Message: msg}
}

func (s *Service) notifyError(n notification.Notifier, err *Error) {
	msg := err.Message
	if msg == "" {
		msg = genericFailure
	}
	n.Notify(notification.Notification{
		Title:       "Error",
		Description: msg,
		Variant:     notification.VariantDestructive,
	})
}
