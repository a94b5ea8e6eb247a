package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/utils/logging"
)

// SignOutHook is called after a session has been revoked
type SignOutHook func(ctx context.Context, session *model.Session)

// AuthUseCaseInterface resolves bearer tokens into sessions
type AuthUseCaseInterface interface {
	Authenticate(ctx context.Context, token string) (*model.Session, error)
	SignOut(ctx context.Context, session *model.Session) error
	// OnSignOut registers a hook and returns a function that removes it
	OnSignOut(hook SignOutHook) func()
	IsNoAuthn() bool
}

// AuthUseCase verifies JWTs issued by the identity provider. Tokens are
// signed either with a shared HS256 secret or with keys published as a JWKS.
type AuthUseCase struct {
	repo     interfaces.Repository
	secret   []byte
	jwksURL  string
	audience string
	issuer   string

	keys    *keySetCache
	revoked *revocationList
	hooks   *hookRegistry
}

var _ AuthUseCaseInterface = (*AuthUseCase)(nil)

// AuthOption is a functional option for AuthUseCase
type AuthOption func(*AuthUseCase)

// WithHMACSecret verifies tokens with a shared HS256 secret
func WithHMACSecret(secret string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.secret = []byte(secret)
	}
}

// WithJWKSURL verifies tokens with the keys published at url
func WithJWKSURL(url string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.jwksURL = url
	}
}

// WithAudience requires the aud claim to contain audience
func WithAudience(audience string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.audience = audience
	}
}

// WithIssuer requires the iss claim to equal issuer
func WithIssuer(issuer string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.issuer = issuer
	}
}

func NewAuthUseCase(repo interfaces.Repository, options ...AuthOption) (*AuthUseCase, error) {
	uc := &AuthUseCase{
		repo:    repo,
		revoked: newRevocationList(time.Now),
		hooks:   newHookRegistry(),
	}

	for _, opt := range options {
		opt(uc)
	}

	if len(uc.secret) == 0 && uc.jwksURL == "" {
		return nil, goerr.Wrap(model.ErrConfiguration, "either a JWT secret or a JWKS URL is required")
	}
	if len(uc.secret) > 0 && uc.jwksURL != "" {
		return nil, goerr.Wrap(model.ErrConfiguration, "JWT secret and JWKS URL are mutually exclusive")
	}
	if uc.jwksURL != "" {
		uc.keys = newKeySetCache(uc.jwksURL)
	}

	return uc, nil
}

// IsNoAuthn returns false for regular AuthUseCase
func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

// Authenticate verifies the token and resolves the linked profile
func (uc *AuthUseCase) Authenticate(ctx context.Context, raw string) (*model.Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "token is required")
	}

	opts := []jwt.ParseOption{
		jwt.WithValidate(true),
		// Allow 10 seconds of clock skew between the provider and this server
		jwt.WithAcceptableSkew(10 * time.Second),
	}
	if uc.audience != "" {
		opts = append(opts, jwt.WithAudience(uc.audience))
	}
	if uc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(uc.issuer))
	}
	if len(uc.secret) > 0 {
		opts = append(opts, jwt.WithKey(jwa.HS256, uc.secret))
	} else {
		keySet, err := uc.keys.get(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, jwt.WithKeySet(keySet))
	}

	token, err := jwt.Parse([]byte(raw), opts...)
	if err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "failed to verify token", goerr.V("error", err.Error()))
	}

	sub := token.Subject()
	if sub == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "sub claim not found in token")
	}
	// a revocation can only be bounded by the token's own expiry
	if token.Expiration().IsZero() {
		return nil, goerr.Wrap(ErrUnauthenticated, "exp claim not found in token")
	}

	tokenID := token.JwtID()
	if tokenID == "" {
		sum := sha256.Sum256([]byte(raw))
		tokenID = hex.EncodeToString(sum[:])
	}
	if uc.revoked.contains(tokenID) {
		return nil, goerr.Wrap(ErrUnauthenticated, "token has been revoked")
	}

	session := &model.Session{
		AccountID: model.AccountID(sub),
		Email:     stringClaim(token, "email"),
		Name:      stringClaim(token, "name"),
		TokenID:   tokenID,
		ExpiresAt: token.Expiration(),
	}

	profile, err := uc.repo.UserProfile().GetByAccountID(ctx, session.AccountID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve profile", goerr.V(AccountIDKey, session.AccountID))
	}
	session.Profile = profile

	return session, nil
}

// SignOut revokes the session token until it expires and runs sign-out hooks
func (uc *AuthUseCase) SignOut(ctx context.Context, session *model.Session) error {
	if session == nil {
		return goerr.Wrap(ErrUnauthenticated, "session is required")
	}

	uc.revoked.add(session.TokenID, session.ExpiresAt)
	uc.hooks.run(ctx, session)
	return nil
}

func (uc *AuthUseCase) OnSignOut(hook SignOutHook) func() {
	return uc.hooks.add(hook)
}

func stringClaim(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// hookRegistry keeps sign-out hooks in registration order
type hookRegistry struct {
	mu    sync.Mutex
	next  uint64
	hooks map[uint64]SignOutHook
}

func newHookRegistry() *hookRegistry {
	return &hookRegistry{hooks: make(map[uint64]SignOutHook)}
}

func (r *hookRegistry) add(hook SignOutHook) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.next
	r.next++
	r.hooks[id] = hook

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.hooks, id)
		})
	}
}

func (r *hookRegistry) run(ctx context.Context, session *model.Session) {
	r.mu.Lock()
	ids := make([]uint64, 0, len(r.hooks))
	for id := range r.hooks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	hooks := make([]SignOutHook, len(ids))
	for i, id := range ids {
		hooks[i] = r.hooks[id]
	}
	r.mu.Unlock()

	for _, hook := range hooks {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logging.From(ctx).Error("sign-out hook panicked", "panic", rec)
				}
			}()
			hook(ctx, session)
		}()
	}
}
