package rest

import (
	"context"
	"net/url"

	"github.com/oapi-codegen/nullable"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/planrepo"
)

// PlanRepo reads membership_plans through the data API.
type PlanRepo struct {
	c *Client
}

func NewPlanRepo(c *Client) *PlanRepo {
	return &PlanRepo{c: c}
}

type planRow struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Description nullable.Nullable[string] `json:"description"`
	Price       float64                   `json:"price"`
	Benefits    domain.Benefits           `json:"benefits"`
	IsActive    bool                      `json:"is_active"`
}

func (row planRow) toPort() planrepo.Plan {
	return planrepo.Plan{
		ID:          domain.PlanID(row.ID),
		Name:        row.Name,
		Description: valueOr(row.Description, ""),
		Price:       row.Price,
		Benefits:    row.Benefits,
		IsActive:    row.IsActive,
	}
}

func (r *PlanRepo) GetByID(ctx context.Context, id domain.PlanID) (planrepo.Plan, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", eq(string(id)))
	q.Set("limit", "1")

	var rows []planRow
	if err := r.c.selectRows(ctx, "membership_plans", q, &rows); err != nil {
		return planrepo.Plan{}, err
	}
	if len(rows) == 0 {
		return planrepo.Plan{}, planrepo.ErrNotFound
	}
	return rows[0].toPort(), nil
}

func (r *PlanRepo) ListActiveByPrice(ctx context.Context) ([]planrepo.Plan, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("is_active", eq("true"))
	q.Set("order", "price.asc,id.asc")

	var rows []planRow
	if err := r.c.selectRows(ctx, "membership_plans", q, &rows); err != nil {
		return nil, err
	}
	out := make([]planrepo.Plan, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toPort())
	}
	return out, nil
}
