package testutil

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	planrepoport "github.com/the-holiday/member-portal-api/internal/ports/out/planrepo"
	profilerepoport "github.com/the-holiday/member-portal-api/internal/ports/out/profilerepo"
)

// Seeder stages member_profiles and membership_plans rows for repository tests.
type Seeder struct {
	Pool *pgxpool.Pool
}

func (s Seeder) PutPlan(ctx context.Context, p planrepoport.Plan) error {
	var benefits json.RawMessage
	if raw, err := json.Marshal(p.Benefits); err == nil && string(raw) != "null" {
		benefits = raw
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO membership_plans (id, name, description, price, benefits, is_active)
		VALUES ($1::uuid, $2, $3, $4, $5::jsonb, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			benefits = EXCLUDED.benefits,
			is_active = EXCLUDED.is_active
	`, string(p.ID), p.Name, p.Description, p.Price, benefits, p.IsActive)
	return err
}

func (s Seeder) PutProfile(ctx context.Context, p profilerepoport.Profile) error {
	var planID *string
	if p.PlanID != nil {
		v := string(*p.PlanID)
		planID = &v
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO member_profiles (
			id, user_id, full_name, phone, member_id, plan_id,
			plan_start_date, plan_end_date, total_spent, total_savings, total_trips
		) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6::uuid, $7::date, $8::date, $9, $10, $11)
	`,
		string(p.ID),
		string(p.UserID),
		p.FullName,
		p.Phone,
		p.MemberID,
		planID,
		p.PlanStartDate,
		p.PlanEndDate,
		p.TotalSpent,
		p.TotalSavings,
		p.TotalTrips,
	)
	return err
}
