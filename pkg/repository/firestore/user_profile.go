package firestore

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type userProfileDocument struct {
	ID         string    `firestore:"id"`
	AccountID  string    `firestore:"account_id"`
	Role       string    `firestore:"role"`
	Name       string    `firestore:"name"`
	Email      string    `firestore:"email"`
	EmailLower string    `firestore:"email_lower"`
	CreatedAt  time.Time `firestore:"created_at"`
	UpdatedAt  time.Time `firestore:"updated_at"`
}

func profileToDocument(p *model.UserProfile) *userProfileDocument {
	return &userProfileDocument{
		ID:         string(p.ID),
		AccountID:  string(p.AccountID),
		Role:       string(p.Role),
		Name:       p.Name,
		Email:      p.Email,
		EmailLower: strings.ToLower(p.Email),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func profileToModel(doc *userProfileDocument) *model.UserProfile {
	return &model.UserProfile{
		ID:        model.UserProfileID(doc.ID),
		AccountID: model.AccountID(doc.AccountID),
		Role:      types.Role(doc.Role),
		Name:      doc.Name,
		Email:     doc.Email,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

type userProfileRepository struct {
	f *Firestore
}

func (r *userProfileRepository) coll() *firestore.CollectionRef {
	return r.f.collection(collUserProfiles)
}

func (r *userProfileRepository) Create(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	created := *p
	if created.ID == "" {
		created.ID = model.NewUserProfileID()
	}
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		iter := tx.Documents(r.coll().Where("account_id", "==", string(created.AccountID)).Limit(1))
		defer iter.Stop()
		if _, err := iter.Next(); err == nil {
			return goerr.Wrap(model.ErrAlreadyExists, "profile already exists for account", goerr.V("account_id", created.AccountID))
		} else if err != iterator.Done {
			return goerr.Wrap(err, "failed to check profile")
		}

		return tx.Create(r.coll().Doc(string(created.ID)), profileToDocument(&created))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create profile", goerr.V(model.ProfileIDKey, created.ID))
	}
	return &created, nil
}

func (r *userProfileRepository) Get(ctx context.Context, id model.UserProfileID) (*model.UserProfile, error) {
	snap, err := r.coll().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "profile not found", goerr.V(model.ProfileIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get profile", goerr.V(model.ProfileIDKey, id))
	}

	var doc userProfileDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode profile", goerr.V(model.ProfileIDKey, id))
	}
	return profileToModel(&doc), nil
}

func (r *userProfileRepository) findOne(ctx context.Context, q firestore.Query) (*model.UserProfile, error) {
	iter := q.Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query profile")
	}

	var doc userProfileDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode profile", goerr.V("doc_id", snap.Ref.ID))
	}
	return profileToModel(&doc), nil
}

func (r *userProfileRepository) GetByAccountID(ctx context.Context, accountID model.AccountID) (*model.UserProfile, error) {
	return r.findOne(ctx, r.coll().Where("account_id", "==", string(accountID)))
}

func (r *userProfileRepository) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	p, err := r.findOne(ctx, r.coll().Where("email_lower", "==", strings.ToLower(email)))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, goerr.Wrap(model.ErrNotFound, "profile not found by email")
	}
	return p, nil
}

func (r *userProfileRepository) ListByRole(ctx context.Context, role types.Role) ([]*model.UserProfile, error) {
	iter := r.coll().Where("role", "==", string(role)).Documents(ctx)
	defer iter.Stop()

	profiles := make([]*model.UserProfile, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate profiles", goerr.V("role", role))
		}

		var doc userProfileDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode profile", goerr.V("doc_id", snap.Ref.ID))
		}
		profiles = append(profiles, profileToModel(&doc))
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles, nil
}

func (r *userProfileRepository) Update(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	_, err := r.coll().Doc(string(p.ID)).Update(ctx, []firestore.Update{
		{Path: "role", Value: string(p.Role)},
		{Path: "name", Value: p.Name},
		{Path: "email", Value: p.Email},
		{Path: "email_lower", Value: strings.ToLower(p.Email)},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "profile not found", goerr.V(model.ProfileIDKey, p.ID))
		}
		return nil, goerr.Wrap(err, "failed to update profile", goerr.V(model.ProfileIDKey, p.ID))
	}
	return r.Get(ctx, p.ID)
}
