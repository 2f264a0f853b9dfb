package profilerepo

import "errors"

var (
	// ErrNotFound indicates no profile exists for the requested identity.
	ErrNotFound = errors.New("member profile not found")
)
