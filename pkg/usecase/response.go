package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

type ResponseUseCase struct {
	repo interfaces.Repository
	now  func() time.Time
}

func NewResponseUseCase(repo interfaces.Repository, now func() time.Time) *ResponseUseCase {
	return &ResponseUseCase{
		repo: repo,
		now:  now,
	}
}

// SubmitAnswers stores the employee's answers and completes the set. Every
// question must be answered in one submission.
func (uc *ResponseUseCase) SubmitAnswers(ctx context.Context, session *model.Session, setID model.QuestionSetID, answers map[model.QuestionID]string) (*model.QuestionSet, error) {
	profile, err := requireProfile(session)
	if err != nil {
		return nil, err
	}

	set, err := uc.repo.QuestionSet().Get(ctx, setID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get question set", goerr.V(model.QuestionSetIDKey, setID))
	}
	if !profile.IsEmployee() || set.EmployeeID != profile.ID {
		return nil, goerr.Wrap(ErrAccessDenied, "only the assigned employee can answer",
			goerr.V(model.QuestionSetIDKey, setID), goerr.V(model.ProfileIDKey, profile.ID))
	}
	if set.Status != types.QuestionSetStatusPending {
		return nil, goerr.Wrap(model.ErrStatusConflict, "question set is not pending",
			goerr.V(model.QuestionSetIDKey, setID), goerr.V(model.StatusKey, set.Status))
	}

	questions, err := uc.repo.Question().ListBySet(ctx, setID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list questions", goerr.V(model.QuestionSetIDKey, setID))
	}

	known := make(map[model.QuestionID]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}
	for id := range answers {
		if _, ok := known[id]; !ok {
			return nil, goerr.Wrap(model.ErrValidation, "answer refers to an unknown question",
				goerr.V(model.QuestionSetIDKey, setID), goerr.V(model.QuestionIDKey, id))
		}
	}

	missing := 0
	for _, q := range questions {
		if strings.TrimSpace(answers[q.ID]) == "" {
			missing++
		}
	}
	if missing > 0 {
		return nil, goerr.Wrap(model.ErrValidation,
			fmt.Sprintf("%d of %d questions are unanswered", missing, len(questions)),
			goerr.V(model.QuestionSetIDKey, setID),
			goerr.V("missing", missing),
			goerr.V("total", len(questions)))
	}

	updated, err := uc.repo.QuestionSet().SubmitAnswers(ctx, setID, answers, uc.now())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store answers", goerr.V(model.QuestionSetIDKey, setID))
	}
	return updated, nil
}
