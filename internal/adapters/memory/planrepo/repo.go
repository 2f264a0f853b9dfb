package planrepo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/ports/out/planrepo"
)

// ErrInvalidPlan is returned by Put for a plan without an ID.
var ErrInvalidPlan = errors.New("plan requires id")

// Repo is an in-memory implementation of planrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.PlanID]planrepo.Plan
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.PlanID]planrepo.Plan)}
}

// Put stores p, replacing any plan with the same ID.
func (r *Repo) Put(ctx context.Context, p planrepo.Plan) error {
	_ = ctx
	if p.ID == "" {
		return ErrInvalidPlan
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PlanID) (planrepo.Plan, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return planrepo.Plan{}, planrepo.ErrNotFound
	}
	return p, nil
}

func (r *Repo) ListActiveByPrice(ctx context.Context) ([]planrepo.Plan, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]planrepo.Plan, 0, len(r.byID))
	for _, p := range r.byID {
		if !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price == out[j].Price {
			return string(out[i].ID) < string(out[j].ID)
		}
		return out[i].Price < out[j].Price
	})
	return out, nil
}
