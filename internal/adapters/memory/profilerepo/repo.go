package profilerepo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/profilerepo"
)

// ErrInvalidProfile is returned by Put for a profile missing its ID or UserID.
var ErrInvalidProfile = errors.New("profile requires id and user id")

// Repo is an in-memory implementation of profilerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byUser map[domain.SubjectID]profilerepo.Profile
}

func NewRepo() *Repo {
	return &Repo{byUser: make(map[domain.SubjectID]profilerepo.Profile)}
}

// Put stores p, replacing any profile already bound to p.UserID.
// It stands in for the hosted backend, which owns profile writes.
func (r *Repo) Put(ctx context.Context, p profilerepo.Profile) error {
	_ = ctx
	if p.ID == "" || p.UserID == "" {
		return ErrInvalidProfile
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[p.UserID] = cloneProfile(p)
	return nil
}

func (r *Repo) GetByUserID(ctx context.Context, userID domain.SubjectID) (profilerepo.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byUser[userID]
	if !ok {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	return cloneProfile(p), nil
}

func cloneProfile(p profilerepo.Profile) profilerepo.Profile {
	out := p
	out.Phone = cloneStringPtr(p.Phone)
	out.MemberID = cloneStringPtr(p.MemberID)
	if p.PlanID != nil {
		v := *p.PlanID
		out.PlanID = &v
	}
	out.PlanStartDate = cloneTimePtr(p.PlanStartDate)
	out.PlanEndDate = cloneTimePtr(p.PlanEndDate)
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
