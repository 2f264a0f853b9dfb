package rest

import (
	"context"
	"net/url"
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/profilerepo"
)

// ProfileRepo reads member_profiles through the data API.
type ProfileRepo struct {
	c *Client
}

func NewProfileRepo(c *Client) *ProfileRepo {
	return &ProfileRepo{c: c}
}

type profileRow struct {
	ID            string                                `json:"id"`
	UserID        string                                `json:"user_id"`
	FullName      nullable.Nullable[string]             `json:"full_name"`
	Phone         nullable.Nullable[string]             `json:"phone"`
	MemberID      nullable.Nullable[string]             `json:"member_id"`
	PlanID        nullable.Nullable[string]             `json:"plan_id"`
	PlanStartDate nullable.Nullable[openapi_types.Date] `json:"plan_start_date"`
	PlanEndDate   nullable.Nullable[openapi_types.Date] `json:"plan_end_date"`
	TotalSpent    nullable.Nullable[float64]            `json:"total_spent"`
	TotalSavings  nullable.Nullable[float64]            `json:"total_savings"`
	TotalTrips    nullable.Nullable[int]                `json:"total_trips"`
}

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID domain.SubjectID) (profilerepo.Profile, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", eq(string(userID)))
	q.Set("limit", "1")

	var rows []profileRow
	if err := r.c.selectRows(ctx, "member_profiles", q, &rows); err != nil {
		return profilerepo.Profile{}, err
	}
	if len(rows) == 0 {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	row := rows[0]

	out := profilerepo.Profile{
		ID:            domain.ProfileID(row.ID),
		UserID:        domain.SubjectID(row.UserID),
		FullName:      valueOr(row.FullName, ""),
		Phone:         ptr(row.Phone),
		MemberID:      ptr(row.MemberID),
		PlanStartDate: datePtr(row.PlanStartDate),
		PlanEndDate:   datePtr(row.PlanEndDate),
		TotalSpent:    valueOr(row.TotalSpent, 0),
		TotalSavings:  valueOr(row.TotalSavings, 0),
		TotalTrips:    valueOr(row.TotalTrips, 0),
	}
	if id := valueOr(row.PlanID, ""); id != "" {
		pid := domain.PlanID(id)
		out.PlanID = &pid
	}
	return out, nil
}

func ptr[T any](n nullable.Nullable[T]) *T {
	if !n.IsSpecified() || n.IsNull() {
		return nil
	}
	v := n.MustGet()
	return &v
}

func valueOr[T any](n nullable.Nullable[T], def T) T {
	if p := ptr(n); p != nil {
		return *p
	}
	return def
}

func datePtr(n nullable.Nullable[openapi_types.Date]) *time.Time {
	d := ptr(n)
	if d == nil {
		return nil
	}
	t := d.Time.UTC()
	return &t
}
