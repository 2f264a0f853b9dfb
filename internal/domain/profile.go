package domain

import "time"

// MemberProfile is one member's record of membership status, spend and savings.
// It is created and mutated by the hosted backend; this service only reads it.
type MemberProfile struct {
	ID     ProfileID
	UserID SubjectID

	FullName string
	Phone    *string
	MemberID *string

	PlanID        *PlanID
	PlanStartDate *time.Time
	PlanEndDate   *time.Time

	TotalSpent   float64
	TotalSavings float64
	TotalTrips   int
}

// HasPlan reports whether the profile references a plan.
func (p MemberProfile) HasPlan() bool {
	return p.PlanID != nil && *p.PlanID != ""
}

// MembershipPlan is a priced tier with an ordered list of benefit descriptions.
type MembershipPlan struct {
	ID          PlanID
	Name        string
	Description string
	Price       float64
	Benefits    []string
}
