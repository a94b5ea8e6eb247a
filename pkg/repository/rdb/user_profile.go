package rdb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/secmon-lab/pulsecheck/pkg/utils/safe"
)

type userProfileRepository struct {
	r *RDB
}

const profileColumns = `id, account_id, role, name, email, created_at, updated_at`

func scanProfile(s rowScanner) (*model.UserProfile, error) {
	var (
		p                    model.UserProfile
		createdAt, updatedAt int64
	)
	if err := s.Scan(&p.ID, &p.AccountID, &p.Role, &p.Name, &p.Email, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func (x *userProfileRepository) Create(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	created := *p
	if created.ID == "" {
		created.ID = model.NewUserProfileID()
	}
	ts := now()
	created.CreatedAt = ts
	created.UpdatedAt = ts

	err := x.r.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, x.r.rebind(`SELECT 1 FROM user_profiles WHERE account_id = ?`), created.AccountID).Scan(&exists)
		switch {
		case err == nil:
			return goerr.Wrap(model.ErrAlreadyExists, "profile already exists for account", goerr.V("account_id", created.AccountID))
		case !errors.Is(err, sql.ErrNoRows):
			return goerr.Wrap(err, "failed to check profile")
		}

		_, err = tx.ExecContext(ctx, x.r.rebind(`INSERT INTO user_profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
			created.ID, created.AccountID, created.Role, created.Name, created.Email,
			toMillis(created.CreatedAt), toMillis(created.UpdatedAt))
		if err != nil {
			return goerr.Wrap(err, "failed to insert profile", goerr.V(model.ProfileIDKey, created.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (x *userProfileRepository) Get(ctx context.Context, id model.UserProfileID) (*model.UserProfile, error) {
	row := x.r.db.QueryRowContext(ctx, x.r.rebind(`SELECT `+profileColumns+` FROM user_profiles WHERE id = ?`), id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "profile not found", goerr.V(model.ProfileIDKey, id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get profile", goerr.V(model.ProfileIDKey, id))
	}
	return p, nil
}

func (x *userProfileRepository) GetByAccountID(ctx context.Context, accountID model.AccountID) (*model.UserProfile, error) {
	row := x.r.db.QueryRowContext(ctx, x.r.rebind(`SELECT `+profileColumns+` FROM user_profiles WHERE account_id = ?`), accountID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get profile by account", goerr.V("account_id", accountID))
	}
	return p, nil
}

func (x *userProfileRepository) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	row := x.r.db.QueryRowContext(ctx, x.r.rebind(`SELECT `+profileColumns+` FROM user_profiles WHERE LOWER(email) = LOWER(?)`), email)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "profile not found by email")
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get profile by email")
	}
	return p, nil
}

func (x *userProfileRepository) ListByRole(ctx context.Context, role types.Role) ([]*model.UserProfile, error) {
	rows, err := x.r.db.QueryContext(ctx, x.r.rebind(`SELECT `+profileColumns+` FROM user_profiles WHERE role = ? ORDER BY name`), role)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list profiles", goerr.V("role", role))
	}
	defer safe.Close(ctx, rows, "rows")

	profiles := make([]*model.UserProfile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan profile")
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate profiles")
	}
	return profiles, nil
}

func (x *userProfileRepository) Update(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	res, err := x.r.db.ExecContext(ctx, x.r.rebind(`UPDATE user_profiles SET role = ?, name = ?, email = ?, updated_at = ? WHERE id = ?`),
		p.Role, p.Name, p.Email, toMillis(now()), p.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update profile", goerr.V(model.ProfileIDKey, p.ID))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, goerr.Wrap(model.ErrNotFound, "profile not found", goerr.V(model.ProfileIDKey, p.ID))
	}
	return x.Get(ctx, p.ID)
}
