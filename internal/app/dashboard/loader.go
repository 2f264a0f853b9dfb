package dashboard

import (
	"context"
	"errors"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
	"github.com/the-holiday/member-portal-api/internal/ports/out/planrepo"
	"github.com/the-holiday/member-portal-api/internal/ports/out/profilerepo"
)

const tracerName = "github.com/the-holiday/member-portal-api/internal/app/dashboard"

// ProfileResult is what LoadProfile resolved. Either field may be nil.
type ProfileResult struct {
	Profile *domain.MemberProfile
	Plan    *domain.MembershipPlan
}

// Loader reads a member's dashboard data. Read failures never surface as errors:
// they are logged and the affected part of the result stays empty.
type Loader struct {
	profiles profilerepo.Repository
	plans    planrepo.Repository
	log      *log.Logger
	tracer   trace.Tracer
}

func NewLoader(profiles profilerepo.Repository, plans planrepo.Repository, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{
		profiles: profiles,
		plans:    plans,
		log:      logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// LoadProfile fetches the profile owned by the session's identity and, only when
// that profile references a plan, the plan itself. The plan lookup starts after
// the profile lookup has finished.
func (l *Loader) LoadProfile(ctx context.Context, sess domain.Session) ProfileResult {
	ctx, span := l.tracer.Start(ctx, "dashboard.LoadProfile",
		trace.WithAttributes(attribute.String("member.user_id", string(sess.UserID))))
	defer span.End()
	ctx = identity.WithAccessToken(ctx, sess.AccessToken)

	p, err := l.profiles.GetByUserID(ctx, sess.UserID)
	if err != nil {
		if !errors.Is(err, profilerepo.ErrNotFound) {
			l.log.Printf("dashboard: error fetching profile for %s: %v", sess.UserID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "profile fetch failed")
		}
		return ProfileResult{}
	}
	profile := toDomainProfile(p)
	out := ProfileResult{Profile: &profile}
	if !profile.HasPlan() {
		return out
	}

	span.SetAttributes(attribute.String("member.plan_id", string(*profile.PlanID)))
	plan, err := l.plans.GetByID(ctx, *profile.PlanID)
	if err != nil {
		// A dangling reference reads as "no plan".
		if !errors.Is(err, planrepo.ErrNotFound) {
			l.log.Printf("dashboard: error fetching plan %s: %v", *profile.PlanID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "plan fetch failed")
		}
		return out
	}
	dp := toDomainPlan(plan)
	out.Plan = &dp
	return out
}

// LoadPlanCatalog returns the active plans, cheapest first.
func (l *Loader) LoadPlanCatalog(ctx context.Context) []domain.MembershipPlan {
	ctx, span := l.tracer.Start(ctx, "dashboard.LoadPlanCatalog")
	defer span.End()

	plans, err := l.plans.ListActiveByPrice(ctx)
	if err != nil {
		l.log.Printf("dashboard: error fetching plans: %v", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "plan catalog fetch failed")
		return []domain.MembershipPlan{}
	}
	out := make([]domain.MembershipPlan, 0, len(plans))
	for _, p := range plans {
		out = append(out, toDomainPlan(p))
	}
	span.SetAttributes(attribute.Int("plans.count", len(out)))
	return out
}

func toDomainProfile(p profilerepo.Profile) domain.MemberProfile {
	return domain.MemberProfile{
		ID:            p.ID,
		UserID:        p.UserID,
		FullName:      p.FullName,
		Phone:         p.Phone,
		MemberID:      p.MemberID,
		PlanID:        p.PlanID,
		PlanStartDate: p.PlanStartDate,
		PlanEndDate:   p.PlanEndDate,
		TotalSpent:    p.TotalSpent,
		TotalSavings:  p.TotalSavings,
		TotalTrips:    p.TotalTrips,
	}
}

// toDomainPlan is the single place stored benefits are normalized.
func toDomainPlan(p planrepo.Plan) domain.MembershipPlan {
	return domain.MembershipPlan{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Benefits:    p.Benefits.Normalize(),
	}
}
