package contracttest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/the-holiday/member-portal-api/internal/domain"
	planrepoport "github.com/the-holiday/member-portal-api/internal/ports/out/planrepo"
	profilerepoport "github.com/the-holiday/member-portal-api/internal/ports/out/profilerepo"
)

type CleanupFunc = func()

// Seeder writes fixture rows. The service never writes profiles or plans, so each
// backend supplies its own way of staging them.
type Seeder interface {
	PutProfile(ctx context.Context, p profilerepoport.Profile) error
	PutPlan(ctx context.Context, p planrepoport.Plan) error
}

// Fixture is one backend's pair of repositories plus its seeder.
type Fixture struct {
	Profiles profilerepoport.Repository
	Plans    planrepoport.Repository
	Seed     Seeder
}

type FixtureFactory func(t *testing.T) (Fixture, CleanupFunc)

func newFixture(t *testing.T, factory FixtureFactory) Fixture {
	t.Helper()
	fx, cleanup := factory(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	return fx
}

func date(y int, m time.Month, d int) *time.Time {
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func strPtr(s string) *string { return &s }

func RunProfileRepo(t *testing.T, factory FixtureFactory) {
	t.Helper()
	ctx := context.Background()
	fx := newFixture(t, factory)

	// Absence is a valid outcome, reported as ErrNotFound.
	if _, err := fx.Profiles.GetByUserID(ctx, domain.SubjectID(uuid.NewString())); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("GetByUserID(unknown) err=%v, want ErrNotFound", err)
	}

	planID := domain.PlanID(uuid.NewString())
	if err := fx.Seed.PutPlan(ctx, planrepoport.Plan{
		ID:       planID,
		Name:     "Gold",
		Price:    1000,
		Benefits: domain.BenefitsFromList([]string{"a"}),
		IsActive: true,
	}); err != nil {
		t.Fatalf("PutPlan: %v", err)
	}

	full := profilerepoport.Profile{
		ID:            domain.ProfileID(uuid.NewString()),
		UserID:        domain.SubjectID(uuid.NewString()),
		FullName:      "Asha Rahman",
		Phone:         strPtr("+8801700000000"),
		MemberID:      strPtr("HOL-000123"),
		PlanID:        &planID,
		PlanStartDate: date(2026, time.January, 1),
		PlanEndDate:   date(2026, time.December, 31),
		TotalSpent:    125000.5,
		TotalSavings:  15000,
		TotalTrips:    4,
	}
	if err := fx.Seed.PutProfile(ctx, full); err != nil {
		t.Fatalf("PutProfile full: %v", err)
	}
	got, err := fx.Profiles.GetByUserID(ctx, full.UserID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if got.ID != full.ID || got.UserID != full.UserID || got.FullName != full.FullName {
		t.Fatalf("identity fields mismatch: %+v", got)
	}
	if got.Phone == nil || *got.Phone != *full.Phone || got.MemberID == nil || *got.MemberID != *full.MemberID {
		t.Fatalf("optional text fields mismatch: %+v", got)
	}
	if got.PlanID == nil || *got.PlanID != planID {
		t.Fatalf("plan id mismatch: %+v", got.PlanID)
	}
	if got.PlanStartDate == nil || !sameDay(*got.PlanStartDate, *full.PlanStartDate) {
		t.Fatalf("plan start mismatch: %v", got.PlanStartDate)
	}
	if got.PlanEndDate == nil || !sameDay(*got.PlanEndDate, *full.PlanEndDate) {
		t.Fatalf("plan end mismatch: %v", got.PlanEndDate)
	}
	if got.TotalSpent != full.TotalSpent || got.TotalSavings != full.TotalSavings || got.TotalTrips != full.TotalTrips {
		t.Fatalf("stats mismatch: %+v", got)
	}

	// Optional columns left unset come back nil.
	bare := profilerepoport.Profile{
		ID:       domain.ProfileID(uuid.NewString()),
		UserID:   domain.SubjectID(uuid.NewString()),
		FullName: "Rafi",
	}
	if err := fx.Seed.PutProfile(ctx, bare); err != nil {
		t.Fatalf("PutProfile bare: %v", err)
	}
	got, err = fx.Profiles.GetByUserID(ctx, bare.UserID)
	if err != nil {
		t.Fatalf("GetByUserID bare: %v", err)
	}
	if got.Phone != nil || got.MemberID != nil || got.PlanID != nil || got.PlanStartDate != nil || got.PlanEndDate != nil {
		t.Fatalf("expected nil optional fields, got %+v", got)
	}
	if got.TotalSpent != 0 || got.TotalSavings != 0 || got.TotalTrips != 0 {
		t.Fatalf("expected zero stats, got %+v", got)
	}
}

func RunPlanRepo(t *testing.T, factory FixtureFactory) {
	t.Helper()
	ctx := context.Background()
	fx := newFixture(t, factory)

	if _, err := fx.Plans.GetByID(ctx, domain.PlanID(uuid.NewString())); !errors.Is(err, planrepoport.ErrNotFound) {
		t.Fatalf("GetByID(unknown) err=%v, want ErrNotFound", err)
	}

	high := planrepoport.Plan{
		ID:          domain.PlanID(uuid.NewString()),
		Name:        "Platinum",
		Description: "All in",
		Price:       2000,
		Benefits:    domain.BenefitsFromList([]string{"lounge", "concierge"}),
		IsActive:    true,
	}
	low := planrepoport.Plan{
		ID:       domain.PlanID(uuid.NewString()),
		Name:     "Silver",
		Price:    500,
		Benefits: domain.BenefitsFromText(`["discounts"]`),
		IsActive: true,
	}
	mid := planrepoport.Plan{
		ID:       domain.PlanID(uuid.NewString()),
		Name:     "Gold",
		Price:    1000,
		IsActive: true,
	}
	retired := planrepoport.Plan{
		ID:       domain.PlanID(uuid.NewString()),
		Name:     "Legacy",
		Price:    100,
		Benefits: domain.BenefitsFromList([]string{"old"}),
		IsActive: false,
	}
	for _, p := range []planrepoport.Plan{high, low, mid, retired} {
		if err := fx.Seed.PutPlan(ctx, p); err != nil {
			t.Fatalf("PutPlan %s: %v", p.Name, err)
		}
	}

	got, err := fx.Plans.GetByID(ctx, high.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != high.Name || got.Description != high.Description || got.Price != high.Price || !got.IsActive {
		t.Fatalf("plan mismatch: %+v", got)
	}
	if !reflect.DeepEqual(got.Benefits.Normalize(), []string{"lounge", "concierge"}) {
		t.Fatalf("benefits mismatch: %#v", got.Benefits.Normalize())
	}

	// Text-encoded benefits keep their encoding through storage.
	got, err = fx.Plans.GetByID(ctx, low.ID)
	if err != nil {
		t.Fatalf("GetByID low: %v", err)
	}
	if got.Benefits.Encoding() != domain.BenefitsText || !reflect.DeepEqual(got.Benefits.Normalize(), []string{"discounts"}) {
		t.Fatalf("text benefits mismatch: enc=%v list=%#v", got.Benefits.Encoding(), got.Benefits.Normalize())
	}

	got, err = fx.Plans.GetByID(ctx, mid.ID)
	if err != nil {
		t.Fatalf("GetByID mid: %v", err)
	}
	if n := got.Benefits.Normalize(); len(n) != 0 {
		t.Fatalf("expected empty benefits, got %#v", n)
	}

	// Retired plans still resolve by id but are excluded from the catalog.
	if _, err := fx.Plans.GetByID(ctx, retired.ID); err != nil {
		t.Fatalf("GetByID retired: %v", err)
	}
	list, err := fx.Plans.ListActiveByPrice(ctx)
	if err != nil {
		t.Fatalf("ListActiveByPrice: %v", err)
	}
	var prices []float64
	for _, p := range list {
		if p.ID == retired.ID {
			t.Fatalf("inactive plan listed")
		}
		prices = append(prices, p.Price)
	}
	if !reflect.DeepEqual(prices, []float64{500, 1000, 2000}) {
		t.Fatalf("unexpected ordering: %v", prices)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
