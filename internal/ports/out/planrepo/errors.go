package planrepo

import "errors"

var (
	// ErrNotFound indicates the requested plan does not exist.
	ErrNotFound = errors.New("membership plan not found")
)
