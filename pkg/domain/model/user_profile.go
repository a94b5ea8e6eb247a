package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

// UserProfileID is a UUID-based identifier for UserProfile
type UserProfileID string

// NewUserProfileID generates a new UUID v4 UserProfileID
func NewUserProfileID() UserProfileID {
	return UserProfileID(uuid.New().String())
}

func (id UserProfileID) String() string {
	return string(id)
}

// AccountID is the subject identifier issued by the authentication provider
type AccountID string

func (id AccountID) String() string {
	return string(id)
}

// UserProfile links an authenticated account to an application role
type UserProfile struct {
	ID        UserProfileID
	AccountID AccountID
	Role      types.Role
	Name      string
	Email     string `masq:"secret"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks required fields of the profile
func (p *UserProfile) Validate() error {
	if p.AccountID == "" {
		return goerr.Wrap(ErrValidation, "account ID is required")
	}
	if !p.Role.IsValid() {
		return goerr.Wrap(ErrValidation, "invalid role", goerr.V("role", p.Role))
	}
	if strings.TrimSpace(p.Name) == "" {
		return goerr.Wrap(ErrValidation, "name is required")
	}
	return nil
}

func (p *UserProfile) IsHR() bool {
	return p != nil && p.Role == types.RoleHR
}

func (p *UserProfile) IsEmployee() bool {
	return p != nil && p.Role == types.RoleEmployee
}
