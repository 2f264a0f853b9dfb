package clock

import "time"

// Clock provides time to the application.
// Session expiry and token lifetimes read it; tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}
