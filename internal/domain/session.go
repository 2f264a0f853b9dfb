package domain

import "time"

// Session is the application's read reference to an authenticated identity.
//
// Sessions are owned by the identity service. Absence is modelled by a nil *Session.
type Session struct {
	UserID      SubjectID
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the session is past its expiry. A zero ExpiresAt never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
