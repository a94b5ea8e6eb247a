package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/secmon-lab/pulsecheck/pkg/service/classifier"
	"github.com/secmon-lab/pulsecheck/pkg/utils/async"
	"github.com/secmon-lab/pulsecheck/pkg/utils/logging"
)

type AnalysisUseCase struct {
	repo       interfaces.Repository
	classifier classifier.Classifier
	notifier   interfaces.Notifier
	now        func() time.Time
}

func NewAnalysisUseCase(repo interfaces.Repository, c classifier.Classifier, notifier interfaces.Notifier, now func() time.Time) *AnalysisUseCase {
	return &AnalysisUseCase{
		repo:       repo,
		classifier: c,
		notifier:   notifier,
		now:        now,
	}
}

// Analyze classifies the answers of a completed set and stores the result.
// The set is claimed by moving it to analyzing first, so a set is analyzed
// at most once even under concurrent requests.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, session *model.Session, setID model.QuestionSetID) (*model.AnalysisResult, error) {
	hr, err := requireHR(session)
	if err != nil {
		return nil, err
	}
	if uc.classifier == nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "risk classifier is not configured")
	}

	set, err := uc.repo.QuestionSet().Get(ctx, setID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get question set", goerr.V(model.QuestionSetIDKey, setID))
	}
	if set.HRID != hr.ID {
		return nil, goerr.Wrap(ErrAccessDenied, "only the author can analyze a question set",
			goerr.V(model.QuestionSetIDKey, setID), goerr.V(model.ProfileIDKey, hr.ID))
	}

	claimed, err := uc.repo.QuestionSet().CompareAndSwapStatus(ctx, setID,
		types.QuestionSetStatusCompleted, types.QuestionSetStatusAnalyzing)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to start analysis", goerr.V(model.QuestionSetIDKey, setID))
	}

	result, err := uc.analyzeClaimed(ctx, claimed)
	if err != nil {
		return nil, uc.release(ctx, claimed, err)
	}

	if result.Classification.OverallRisk == types.RiskLevelHigh {
		uc.dispatchAlert(ctx, result)
	}

	logging.From(ctx).Info("question set analyzed",
		"question_set_id", setID,
		"overall_risk", result.Classification.OverallRisk,
		"classifier", uc.classifier.Name())

	return result, nil
}

func (uc *AnalysisUseCase) analyzeClaimed(ctx context.Context, set *model.QuestionSet) (*model.AnalysisResult, error) {
	questions, err := uc.repo.Question().ListBySet(ctx, set.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list questions", goerr.V(model.QuestionSetIDKey, set.ID))
	}
	if len(questions) == 0 {
		return nil, goerr.Wrap(model.ErrValidation, "question set has no questions",
			goerr.V(model.QuestionSetIDKey, set.ID))
	}
	for _, q := range questions {
		if !q.HasAnswer() {
			return nil, goerr.Wrap(model.ErrValidation, "question is not answered",
				goerr.V(model.QuestionSetIDKey, set.ID), goerr.V(model.QuestionIDKey, q.ID))
		}
	}

	classification, err := uc.classifier.Classify(ctx, model.ItemsFromQuestions(questions))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to classify answers", goerr.V(model.QuestionSetIDKey, set.ID))
	}

	commit := model.NewAnalysisCommit(set, classification, uc.now())
	analyzed, err := uc.repo.QuestionSet().CommitAnalysis(ctx, commit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store analysis", goerr.V(model.QuestionSetIDKey, set.ID))
	}

	return &model.AnalysisResult{QuestionSet: analyzed, Classification: classification}, nil
}

// release moves a claimed set back to completed after a failed analysis. If
// that fails too, the set is left in analyzing and a PartialUpdateError is
// returned. A status conflict means the set already left analyzing, e.g. the
// stale analysis worker released it, so there is nothing to compensate.
func (uc *AnalysisUseCase) release(ctx context.Context, set *model.QuestionSet, cause error) error {
	_, err := uc.repo.QuestionSet().CompareAndSwapStatus(ctx, set.ID,
		types.QuestionSetStatusAnalyzing, types.QuestionSetStatusCompleted)
	if err == nil || errors.Is(err, model.ErrStatusConflict) {
		return cause
	}

	logging.From(ctx).Error("failed to release question set after analysis failure",
		"question_set_id", set.ID, "error", err.Error())
	return &model.PartialUpdateError{
		Updated: []model.EntityRef{set.Ref()},
		Cause:   errors.Join(cause, err),
	}
}

func (uc *AnalysisUseCase) dispatchAlert(ctx context.Context, result *model.AnalysisResult) {
	if uc.notifier == nil {
		return
	}

	set := result.QuestionSet
	hr, err := uc.repo.UserProfile().Get(ctx, set.HRID)
	if err != nil {
		logging.From(ctx).Warn("failed to load HR profile for alert", "error", err.Error())
		hr = nil
	}
	employee, err := uc.repo.UserProfile().Get(ctx, set.EmployeeID)
	if err != nil {
		logging.From(ctx).Warn("failed to load employee profile for alert", "error", err.Error())
		employee = nil
	}

	analyzedAt := uc.now()
	if set.CompletedAt != nil {
		analyzedAt = *set.CompletedAt
	}
	alert := model.NewRiskAlert(set, hr, employee, result.Classification, analyzedAt)

	async.Dispatch(ctx, "risk-alert", func(ctx context.Context) error {
		return uc.notifier.PostRiskAlert(ctx, alert)
	})
}

// ClassifyAnswer is one answer sent for ad-hoc classification
type ClassifyAnswer struct {
	QuestionID model.QuestionID
	AnswerText string
}

// Classify labels answers to questions of a set without storing anything
func (uc *AnalysisUseCase) Classify(ctx context.Context, session *model.Session, setID model.QuestionSetID, answers []ClassifyAnswer) (*model.Classification, error) {
	hr, err := requireHR(session)
	if err != nil {
		return nil, err
	}
	if uc.classifier == nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "risk classifier is not configured")
	}
	if setID == "" {
		return nil, goerr.Wrap(model.ErrValidation, "question set ID is required")
	}

	set, err := uc.repo.QuestionSet().Get(ctx, setID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get question set", goerr.V(model.QuestionSetIDKey, setID))
	}
	if set.HRID != hr.ID {
		return nil, goerr.Wrap(ErrAccessDenied, "only the author can classify answers of a question set",
			goerr.V(model.QuestionSetIDKey, setID), goerr.V(model.ProfileIDKey, hr.ID))
	}

	questions, err := uc.repo.Question().ListBySet(ctx, setID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list questions", goerr.V(model.QuestionSetIDKey, setID))
	}
	texts := make(map[model.QuestionID]string, len(questions))
	for _, q := range questions {
		texts[q.ID] = q.Text
	}

	items := make([]model.ClassificationItem, 0, len(answers))
	for _, a := range answers {
		text, ok := texts[a.QuestionID]
		if !ok {
			return nil, goerr.Wrap(model.ErrValidation, "answer refers to an unknown question",
				goerr.V(model.QuestionSetIDKey, setID), goerr.V(model.QuestionIDKey, a.QuestionID))
		}
		if strings.TrimSpace(a.AnswerText) == "" {
			continue
		}
		items = append(items, model.ClassificationItem{
			QuestionID:   a.QuestionID,
			QuestionText: text,
			AnswerText:   a.AnswerText,
		})
	}

	c, err := uc.classifier.Classify(ctx, items)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to classify answers", goerr.V(model.QuestionSetIDKey, setID))
	}
	return c, nil
}

// ListHistory returns the analysis history visible to the caller, newest first
func (uc *AnalysisUseCase) ListHistory(ctx context.Context, session *model.Session) ([]*model.QuestionHistory, error) {
	profile, err := requireProfile(session)
	if err != nil {
		return nil, err
	}

	history, err := uc.repo.History().List(ctx, historyScope(profile))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list history")
	}

	if profile.IsEmployee() {
		for _, h := range history {
			h.OverallRiskLevel = types.RiskLevelUnset
		}
	}
	return history, nil
}

func historyScope(profile *model.UserProfile) interfaces.ListHistoryOption {
	if profile.IsHR() {
		return interfaces.WithHistoryHRID(profile.ID)
	}
	return interfaces.WithHistoryEmployeeID(profile.ID)
}
