package identity

import "errors"

var (
	// ErrInvalidCredentials indicates the email/password pair was rejected.
	ErrInvalidCredentials = errors.New("invalid login credentials")

	// ErrUserAlreadyRegistered indicates a signup for an email that already has an identity.
	ErrUserAlreadyRegistered = errors.New("user already registered")

	// ErrWeakPassword indicates the identity service rejected the password.
	ErrWeakPassword = errors.New("weak password")
)

// AuthError is an authentication failure reported by the identity service.
// Message is meant to be shown to the member verbatim.
type AuthError struct {
	Status  int
	Code    string
	Message string

	// Err is the matching sentinel, when the failure is one the application recognizes.
	Err error
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
