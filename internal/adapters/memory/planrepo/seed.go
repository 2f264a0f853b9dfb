package planrepo

import (
	"context"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/planrepo"
)

// DefaultCatalog is the plan catalog loaded for local development.
// The Gold tier keeps its benefits as serialized text, the way older rows were written.
func DefaultCatalog() []planrepo.Plan {
	return []planrepo.Plan{
		{
			ID:          domain.PlanID("7d6f4a1e-1c2b-4f8e-9a51-0b8c3f1e2a01"),
			Name:        "Silver",
			Description: "Start saving on every getaway.",
			Price:       4999,
			Benefits: domain.BenefitsFromList([]string{
				"5% off domestic packages",
				"Priority email support",
				"Member-only newsletter",
			}),
			IsActive: true,
		},
		{
			ID:          domain.PlanID("7d6f4a1e-1c2b-4f8e-9a51-0b8c3f1e2a02"),
			Name:        "Gold",
			Description: "Our most popular membership.",
			Price:       9999,
			Benefits: domain.BenefitsFromText(
				`["10% off all packages","Free airport transfers","Priority phone support","Early access to flash sales","One free room upgrade per year"]`,
			),
			IsActive: true,
		},
		{
			ID:          domain.PlanID("7d6f4a1e-1c2b-4f8e-9a51-0b8c3f1e2a03"),
			Name:        "Platinum",
			Description: "The full Holiday experience.",
			Price:       19999,
			Benefits: domain.BenefitsFromList([]string{
				"15% off all packages",
				"Free airport transfers",
				"Dedicated travel concierge",
				"Lounge access on international trips",
				"Two free room upgrades per year",
			}),
			IsActive: true,
		},
	}
}

// Seed stores DefaultCatalog into r.
func Seed(ctx context.Context, r *Repo) error {
	for _, p := range DefaultCatalog() {
		if err := r.Put(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
