package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
)

// NoAuthnAccount is the fixed identity used when authentication is disabled
type NoAuthnAccount struct {
	AccountID string
	Email     string
	Name      string
}

// NoAuthnUseCase authenticates every request as a single configured account
// (for development/testing)
type NoAuthnUseCase struct {
	repo    interfaces.Repository
	account NoAuthnAccount
	hooks   *hookRegistry
}

var _ AuthUseCaseInterface = (*NoAuthnUseCase)(nil)

// NewNoAuthnUseCase creates a new NoAuthnUseCase instance with specified user info
func NewNoAuthnUseCase(repo interfaces.Repository, account NoAuthnAccount) *NoAuthnUseCase {
	if account.AccountID == "" {
		account.AccountID = "dev-user"
	}
	if account.Name == "" {
		account.Name = "Developer"
	}
	return &NoAuthnUseCase{
		repo:    repo,
		account: account,
		hooks:   newHookRegistry(),
	}
}

// Authenticate ignores the token and returns the configured account
func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, _ string) (*model.Session, error) {
	accountID := model.AccountID(uc.account.AccountID)
	profile, err := uc.repo.UserProfile().GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve profile", goerr.V(AccountIDKey, accountID))
	}

	return &model.Session{
		AccountID: accountID,
		Email:     uc.account.Email,
		Name:      uc.account.Name,
		TokenID:   "noauthn",
		ExpiresAt: time.Now().Add(24 * time.Hour),
		Profile:   profile,
	}, nil
}

// SignOut only runs the hooks in no-auth mode
func (uc *NoAuthnUseCase) SignOut(ctx context.Context, session *model.Session) error {
	uc.hooks.run(ctx, session)
	return nil
}

func (uc *NoAuthnUseCase) OnSignOut(hook SignOutHook) func() {
	return uc.hooks.add(hook)
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
