package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

type ProfileUseCase struct {
	repo interfaces.Repository
	now  func() time.Time
}

func NewProfileUseCase(repo interfaces.Repository, now func() time.Time) *ProfileUseCase {
	return &ProfileUseCase{repo: repo, now: now}
}

// RegisterInput is the signup form of an authenticated account
type RegisterInput struct {
	Name string
	Role string
}

// Register creates the profile of the session's account
func (uc *ProfileUseCase) Register(ctx context.Context, session *model.Session, input RegisterInput) (*model.UserProfile, error) {
	if session == nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "session is required")
	}
	if session.HasProfile() {
		return nil, goerr.Wrap(model.ErrAlreadyExists, "profile already exists",
			goerr.V(AccountIDKey, session.AccountID))
	}

	role, err := types.ParseRole(input.Role)
	if err != nil {
		return nil, goerr.Wrap(model.ErrValidation, "invalid role", goerr.V(RoleKey, input.Role))
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = session.Name
	}

	now := uc.now()
	profile := &model.UserProfile{
		ID:        model.NewUserProfileID(),
		AccountID: session.AccountID,
		Role:      role,
		Name:      name,
		Email:     session.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	created, err := uc.repo.UserProfile().Create(ctx, profile)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create profile", goerr.V(AccountIDKey, session.AccountID))
	}
	return created, nil
}

// Me returns the current profile of the session, or nil before signup
func (uc *ProfileUseCase) Me(ctx context.Context, session *model.Session) (*model.UserProfile, error) {
	if session == nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "session is required")
	}
	profile, err := uc.repo.UserProfile().GetByAccountID(ctx, session.AccountID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get profile", goerr.V(AccountIDKey, session.AccountID))
	}
	return profile, nil
}

// ListEmployees returns every employee profile. HR only.
func (uc *ProfileUseCase) ListEmployees(ctx context.Context, session *model.Session) ([]*model.UserProfile, error) {
	if _, err := requireHR(session); err != nil {
		return nil, err
	}

	employees, err := uc.repo.UserProfile().ListByRole(ctx, types.RoleEmployee)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list employees")
	}
	return employees, nil
}
