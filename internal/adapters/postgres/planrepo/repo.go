package planrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/planrepo"
)

// Repo is a Postgres implementation of planrepo.Repository over membership_plans.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectPlan = `
	SELECT id, name, description, price, benefits, is_active
	FROM membership_plans
`

func (r *Repo) GetByID(ctx context.Context, id domain.PlanID) (planrepo.Plan, error) {
	if r.pool == nil {
		return planrepo.Plan{}, errors.New("nil postgres pool")
	}
	pid, err := uuid.Parse(string(id))
	if err != nil {
		return planrepo.Plan{}, planrepo.ErrNotFound
	}
	p, err := scanPlan(r.pool.QueryRow(ctx, selectPlan+` WHERE id = $1`, pid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return planrepo.Plan{}, planrepo.ErrNotFound
		}
		return planrepo.Plan{}, fmt.Errorf("select membership plan: %w", err)
	}
	return p, nil
}

func (r *Repo) ListActiveByPrice(ctx context.Context) ([]planrepo.Plan, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, selectPlan+` WHERE is_active ORDER BY price ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list membership plans: %w", err)
	}
	defer rows.Close()

	out := make([]planrepo.Plan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership plan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list membership plans: %w", err)
	}
	return out, nil
}

func scanPlan(row pgx.Row) (planrepo.Plan, error) {
	var (
		id          uuid.UUID
		name        string
		description string
		price       float64
		benefits    []byte
		isActive    bool
	)
	if err := row.Scan(&id, &name, &description, &price, &benefits, &isActive); err != nil {
		return planrepo.Plan{}, err
	}
	var b domain.Benefits
	// Never fails; unexpected shapes decode as missing.
	_ = b.UnmarshalJSON(benefits)
	return planrepo.Plan{
		ID:          domain.PlanID(id.String()),
		Name:        name,
		Description: description,
		Price:       price,
		Benefits:    b,
		IsActive:    isActive,
	}, nil
}
