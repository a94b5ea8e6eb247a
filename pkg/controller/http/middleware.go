package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/usecase"
	"github.com/secmon-lab/pulsecheck/pkg/utils/logging"
)

type sessionContextKey struct{}

func contextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

func sessionFromContext(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey{}).(*model.Session)
	return session
}

// authMiddleware resolves the bearer token into a session
func authMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authUC == nil {
				writeError(r.Context(), w, goerr.Wrap(model.ErrConfiguration, "authentication is not configured"))
				return
			}

			var token string
			if !authUC.IsNoAuthn() {
				header := r.Header.Get("Authorization")
				scheme, value, ok := strings.Cut(header, " ")
				if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(value) == "" {
					writeError(r.Context(), w, goerr.Wrap(usecase.ErrUnauthenticated, "bearer token required"))
					return
				}
				token = strings.TrimSpace(value)
			}

			session, err := authUC.Authenticate(r.Context(), token)
			if err != nil {
				writeError(r.Context(), w, err)
				return
			}

			ctx := contextWithSession(r.Context(), session)
			ctx = logging.With(ctx, logging.From(ctx).With("account_id", session.AccountID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
