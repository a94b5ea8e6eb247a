package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

type userProfileRepository struct {
	m *Memory
}

func copyProfile(p *model.UserProfile) *model.UserProfile {
	copied := *p
	return &copied
}

func (r *userProfileRepository) Create(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.profiles {
		if existing.AccountID == p.AccountID {
			return nil, goerr.Wrap(model.ErrAlreadyExists, "profile already exists for account", goerr.V("account_id", p.AccountID))
		}
	}

	now := time.Now().UTC()
	created := copyProfile(p)
	if created.ID == "" {
		created.ID = model.NewUserProfileID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.m.profiles[created.ID] = created
	return copyProfile(created), nil
}

func (r *userProfileRepository) Get(ctx context.Context, id model.UserProfileID) (*model.UserProfile, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	p, ok := r.m.profiles[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "profile not found", goerr.V(model.ProfileIDKey, id))
	}
	return copyProfile(p), nil
}

func (r *userProfileRepository) GetByAccountID(ctx context.Context, accountID model.AccountID) (*model.UserProfile, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for _, p := range r.m.profiles {
		if p.AccountID == accountID {
			return copyProfile(p), nil
		}
	}
	return nil, nil
}

func (r *userProfileRepository) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for _, p := range r.m.profiles {
		if strings.EqualFold(p.Email, email) {
			return copyProfile(p), nil
		}
	}
	return nil, goerr.Wrap(model.ErrNotFound, "profile not found by email")
}

func (r *userProfileRepository) ListByRole(ctx context.Context, role types.Role) ([]*model.UserProfile, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	profiles := make([]*model.UserProfile, 0)
	for _, p := range r.m.profiles {
		if p.Role == role {
			profiles = append(profiles, copyProfile(p))
		}
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles, nil
}

func (r *userProfileRepository) Update(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	existing, ok := r.m.profiles[p.ID]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "profile not found", goerr.V(model.ProfileIDKey, p.ID))
	}

	updated := copyProfile(p)
	updated.AccountID = existing.AccountID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.m.profiles[updated.ID] = updated
	return copyProfile(updated), nil
}
