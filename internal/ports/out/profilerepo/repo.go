package profilerepo

import (
	"context"
	"time"

	"github.com/the-holiday/member-portal-api/internal/domain"
)

// Profile is the persistence shape of a member_profiles row.
type Profile struct {
	ID     domain.ProfileID
	UserID domain.SubjectID

	FullName string
	// Phone is optional; nil means unset.
	Phone *string
	// MemberID is the human-facing membership number; nil until one is assigned.
	MemberID *string

	PlanID        *domain.PlanID
	PlanStartDate *time.Time
	PlanEndDate   *time.Time

	TotalSpent   float64
	TotalSavings float64
	TotalTrips   int
}

// Repository reads member profiles. Profiles are created and mutated by the hosted backend.
type Repository interface {
	// GetByUserID returns the single profile bound to the identity, or ErrNotFound.
	GetByUserID(ctx context.Context, userID domain.SubjectID) (Profile, error)
}
