package profilerepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/profilerepo"
)

// Repo is a Postgres implementation of profilerepo.Repository over member_profiles.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) GetByUserID(ctx context.Context, userID domain.SubjectID) (profilerepo.Profile, error) {
	if r.pool == nil {
		return profilerepo.Profile{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(userID))
	if err != nil {
		// Identities are uuids; anything else cannot own a row.
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}

	var (
		id            uuid.UUID
		owner         uuid.UUID
		fullName      string
		phone         *string
		memberID      *string
		planID        *uuid.UUID
		planStartDate *time.Time
		planEndDate   *time.Time
		totalSpent    float64
		totalSavings  float64
		totalTrips    int32
	)
	err = r.pool.QueryRow(ctx, `
		SELECT
			id,
			user_id,
			full_name,
			phone,
			member_id,
			plan_id,
			plan_start_date,
			plan_end_date,
			total_spent,
			total_savings,
			total_trips
		FROM member_profiles
		WHERE user_id = $1
	`, uid).Scan(
		&id,
		&owner,
		&fullName,
		&phone,
		&memberID,
		&planID,
		&planStartDate,
		&planEndDate,
		&totalSpent,
		&totalSavings,
		&totalTrips,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profilerepo.Profile{}, profilerepo.ErrNotFound
		}
		return profilerepo.Profile{}, fmt.Errorf("select member profile: %w", err)
	}

	out := profilerepo.Profile{
		ID:            domain.ProfileID(id.String()),
		UserID:        domain.SubjectID(owner.String()),
		FullName:      fullName,
		Phone:         phone,
		MemberID:      memberID,
		PlanStartDate: utcDate(planStartDate),
		PlanEndDate:   utcDate(planEndDate),
		TotalSpent:    totalSpent,
		TotalSavings:  totalSavings,
		TotalTrips:    int(totalTrips),
	}
	if planID != nil {
		pid := domain.PlanID(planID.String())
		out.PlanID = &pid
	}
	return out, nil
}

func utcDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}
