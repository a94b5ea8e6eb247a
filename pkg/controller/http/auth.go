package http

import (
	"net/http"

	"github.com/secmon-lab/pulsecheck/pkg/usecase"
)

// AuthUseCase is the authentication contract used by the HTTP layer
type AuthUseCase = usecase.AuthUseCaseInterface

func logoutHandler(authUC AuthUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := authUC.SignOut(ctx, sessionFromContext(ctx)); err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, map[string]bool{"success": true})
	}
}
