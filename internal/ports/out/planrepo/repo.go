package planrepo

import (
	"context"

	"github.com/the-holiday/member-portal-api/internal/domain"
)

// Plan is the persistence shape of a membership_plans row.
//
// Benefits is kept in its stored encoding; callers normalize it at the boundary.
type Plan struct {
	ID          domain.PlanID
	Name        string
	Description string
	Price       float64
	Benefits    domain.Benefits
	IsActive    bool
}

// Repository reads membership plans.
//
// Result ordering expectations:
// - ListActiveByPrice returns active plans ordered by Price ascending (ties by ID).
type Repository interface {
	GetByID(ctx context.Context, id domain.PlanID) (Plan, error)
	ListActiveByPrice(ctx context.Context) ([]Plan, error)
}
