package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/repository/memory"
	"github.com/secmon-lab/pulsecheck/pkg/usecase"
)

func TestNoAuthnUseCase(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := usecase.NewNoAuthnUseCase(repo, usecase.NoAuthnAccount{
		AccountID: "dev-1",
		Email:     "dev@example.com",
		Name:      "Dev",
	})

	t.Run("any token authenticates as the configured account", func(t *testing.T) {
		session, err := uc.Authenticate(ctx, "")
		gt.NoError(t, err).Required()
		gt.Value(t, session.AccountID).Equal(model.AccountID("dev-1"))
		gt.Value(t, session.Email).Equal("dev@example.com")
		gt.Bool(t, session.HasProfile()).False()
	})

	t.Run("profile is resolved after signup", func(t *testing.T) {
		session, err := uc.Authenticate(ctx, "ignored")
		gt.NoError(t, err).Required()

		profiles := usecase.New(repo)
		_, err = profiles.Profile.Register(ctx, session, usecase.RegisterInput{Role: "hr"})
		gt.NoError(t, err).Required()

		session, err = uc.Authenticate(ctx, "ignored")
		gt.NoError(t, err).Required()
		gt.Bool(t, session.IsHR()).True()
	})

	t.Run("IsNoAuthn returns true", func(t *testing.T) {
		gt.Bool(t, uc.IsNoAuthn()).True()
	})

	t.Run("SignOut runs hooks", func(t *testing.T) {
		called := false
		unsubscribe := uc.OnSignOut(func(ctx context.Context, s *model.Session) { called = true })
		defer unsubscribe()

		gt.NoError(t, uc.SignOut(ctx, &model.Session{AccountID: "dev-1"}))
		gt.Bool(t, called).True()
	})
}
