package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/usecase"
)

func analyzeHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := model.QuestionSetID(chi.URLParam(r, "id"))

		result, err := uc.Analysis.Analyze(ctx, sessionFromContext(ctx), id)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, map[string]any{
			"question_set":   toQuestionSetView(result.QuestionSet),
			"classification": toClassificationView(result.Classification),
		})
	}
}

type analyzeResponsesRequest struct {
	QuestionSetID string `json:"question_set_id"`
	Responses     []struct {
		ID         string `json:"id"`
		AnswerText string `json:"answer_text"`
	} `json:"responses"`
}

func analyzeResponsesHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req analyzeResponsesRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}

		answers := make([]usecase.ClassifyAnswer, len(req.Responses))
		for i, resp := range req.Responses {
			answers[i] = usecase.ClassifyAnswer{
				QuestionID: model.QuestionID(resp.ID),
				AnswerText: resp.AnswerText,
			}
		}

		c, err := uc.Analysis.Classify(ctx, sessionFromContext(ctx), model.QuestionSetID(req.QuestionSetID), answers)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, toClassificationView(c))
	}
}

func historyHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		records, err := uc.Analysis.ListHistory(ctx, sessionFromContext(ctx))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, map[string]any{"history": toHistoryViews(records)})
	}
}

func dashboardHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		summary, err := uc.Dashboard.Summary(ctx, sessionFromContext(ctx))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, toDashboardView(summary))
	}
}
