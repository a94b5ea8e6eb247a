package http

import (
	"net/http"

	"github.com/secmon-lab/pulsecheck/pkg/usecase"
)

func meHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session := sessionFromContext(ctx)

		profile, err := uc.Profile.Me(ctx, session)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, &meView{
			AccountID: session.AccountID.String(),
			Email:     session.Email,
			Name:      session.Name,
			NoAuthn:   uc.Auth != nil && uc.Auth.IsNoAuthn(),
			Profile:   toProfileView(profile),
		})
	}
}

type registerRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func registerHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}

		profile, err := uc.Profile.Register(ctx, sessionFromContext(ctx), usecase.RegisterInput{
			Name: req.Name,
			Role: req.Role,
		})
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusCreated, toProfileView(profile))
	}
}

func listEmployeesHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		employees, err := uc.Profile.ListEmployees(ctx, sessionFromContext(ctx))
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		views := make([]*profileView, len(employees))
		for i, p := range employees {
			views[i] = toProfileView(p)
		}
		writeJSON(ctx, w, http.StatusOK, map[string]any{"employees": views})
	}
}
