package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/usecase"
)

type generateQuestionsRequest struct {
	Prompt     string `json:"prompt"`
	EmployeeID string `json:"employeeId,omitempty"`
}

func generateQuestionsHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req generateQuestionsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}

		questions, err := uc.QuestionSet.GenerateQuestions(ctx, sessionFromContext(ctx), req.Prompt, model.UserProfileID(req.EmployeeID))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, map[string][]string{"questions": questions})
	}
}

type createQuestionSetRequest struct {
	EmployeeID    string   `json:"employee_id"`
	EmployeeEmail string   `json:"employee_email"`
	Prompt        string   `json:"prompt"`
	Questions     []string `json:"questions,omitempty"`
}

func createQuestionSetHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createQuestionSetRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}

		detail, err := uc.QuestionSet.CreateQuestionSet(ctx, sessionFromContext(ctx), usecase.CreateQuestionSetInput{
			EmployeeID:    model.UserProfileID(req.EmployeeID),
			EmployeeEmail: req.EmployeeEmail,
			Prompt:        req.Prompt,
			Questions:     req.Questions,
		})
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusCreated, toQuestionSetDetailView(detail))
	}
}

func listQuestionSetsHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sets, err := uc.QuestionSet.ListQuestionSets(ctx, sessionFromContext(ctx))
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		views := make([]*questionSetView, len(sets))
		for i, s := range sets {
			views[i] = toQuestionSetView(s)
		}
		writeJSON(ctx, w, http.StatusOK, map[string]any{"question_sets": views})
	}
}

func getQuestionSetHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := model.QuestionSetID(chi.URLParam(r, "id"))

		detail, err := uc.QuestionSet.GetQuestionSet(ctx, sessionFromContext(ctx), id)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, toQuestionSetDetailView(detail))
	}
}

type answerEntry struct {
	QuestionID string `json:"question_id"`
	AnswerText string `json:"answer_text"`
}

type submitAnswersRequest struct {
	Answers []answerEntry `json:"answers"`
}

func submitAnswersHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := model.QuestionSetID(chi.URLParam(r, "id"))

		var req submitAnswersRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}

		answers := make(map[model.QuestionID]string, len(req.Answers))
		for _, a := range req.Answers {
			answers[model.QuestionID(a.QuestionID)] = a.AnswerText
		}

		set, err := uc.Response.SubmitAnswers(ctx, sessionFromContext(ctx), id, answers)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, toQuestionSetView(set))
	}
}
