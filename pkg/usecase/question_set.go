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
	"github.com/secmon-lab/pulsecheck/pkg/service/generator"
)

type QuestionSetUseCase struct {
	repo      interfaces.Repository
	generator QuestionGenerator
	now       func() time.Time
}

func NewQuestionSetUseCase(repo interfaces.Repository, gen QuestionGenerator, now func() time.Time) *QuestionSetUseCase {
	return &QuestionSetUseCase{
		repo:      repo,
		generator: gen,
		now:       now,
	}
}

// CreateQuestionSetInput describes a new assessment. The employee is chosen
// by ID or by email. Questions, when given, are used instead of generating.
type CreateQuestionSetInput struct {
	EmployeeID    model.UserProfileID
	EmployeeEmail string
	Prompt        string
	Questions     []string
}

// CreateQuestionSet generates questions for the prompt and stores them as a
// pending set assigned to the employee
func (uc *QuestionSetUseCase) CreateQuestionSet(ctx context.Context, session *model.Session, input CreateQuestionSetInput) (*model.QuestionSetDetail, error) {
	hr, err := requireHR(session)
	if err != nil {
		return nil, err
	}

	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return nil, goerr.Wrap(model.ErrValidation, "prompt is required")
	}

	employee, err := uc.resolveEmployee(ctx, input)
	if err != nil {
		return nil, err
	}

	var texts []string
	if len(input.Questions) > 0 {
		texts, err = normalizeQuestions(input.Questions)
		if err != nil {
			return nil, err
		}
	} else {
		texts, err = uc.generate(ctx, prompt, employee.ID)
		if err != nil {
			return nil, err
		}
	}

	set := &model.QuestionSet{
		ID:         model.NewQuestionSetID(),
		HRID:       hr.ID,
		EmployeeID: employee.ID,
		Prompt:     prompt,
		Status:     types.QuestionSetStatusPending,
		CreatedAt:  uc.now(),
	}
	questions := model.NewQuestions(set, texts)

	created, err := uc.repo.QuestionSet().CreateWithQuestions(ctx, set, questions)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store question set", goerr.V(model.QuestionSetIDKey, set.ID))
	}

	stored, err := uc.repo.Question().ListBySet(ctx, created.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load questions", goerr.V(model.QuestionSetIDKey, created.ID))
	}

	return &model.QuestionSetDetail{QuestionSet: created, Questions: stored}, nil
}

// GenerateQuestions returns generated questions without storing anything
func (uc *QuestionSetUseCase) GenerateQuestions(ctx context.Context, session *model.Session, prompt string, employeeID model.UserProfileID) ([]string, error) {
	if _, err := requireHR(session); err != nil {
		return nil, err
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, goerr.Wrap(model.ErrValidation, "prompt is required")
	}
	return uc.generate(ctx, prompt, employeeID)
}

func (uc *QuestionSetUseCase) generate(ctx context.Context, prompt string, employeeID model.UserProfileID) ([]string, error) {
	if uc.generator == nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "question generation is not configured")
	}

	texts, err := uc.generator.Generate(ctx, generator.Request{Prompt: prompt, EmployeeID: employeeID})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate questions")
	}
	if len(texts) == 0 {
		return nil, goerr.Wrap(errors.Join(model.ErrGeneration, model.ErrParse), "generator returned no questions")
	}
	if len(texts) > model.MaxQuestionsPerSet {
		texts = texts[:model.MaxQuestionsPerSet]
	}
	return texts, nil
}

func (uc *QuestionSetUseCase) resolveEmployee(ctx context.Context, input CreateQuestionSetInput) (*model.UserProfile, error) {
	var (
		employee *model.UserProfile
		err      error
	)

	switch {
	case input.EmployeeID != "":
		employee, err = uc.repo.UserProfile().Get(ctx, input.EmployeeID)
	case strings.TrimSpace(input.EmployeeEmail) != "":
		employee, err = uc.repo.UserProfile().GetByEmail(ctx, strings.TrimSpace(input.EmployeeEmail))
	default:
		return nil, goerr.Wrap(model.ErrValidation, "no employee selected")
	}

	if errors.Is(err, model.ErrNotFound) || (err == nil && employee == nil) {
		return nil, goerr.Wrap(model.ErrValidation, "employee not found",
			goerr.V("employee_id", input.EmployeeID), goerr.V("employee_email", input.EmployeeEmail))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve employee")
	}
	if !employee.IsEmployee() {
		return nil, goerr.Wrap(model.ErrValidation, "selected profile is not an employee",
			goerr.V(model.ProfileIDKey, employee.ID))
	}
	return employee, nil
}

func normalizeQuestions(questions []string) ([]string, error) {
	if len(questions) > model.MaxQuestionsPerSet {
		return nil, goerr.Wrap(model.ErrValidation, "too many questions",
			goerr.V("count", len(questions)), goerr.V("max", model.MaxQuestionsPerSet))
	}

	texts := make([]string, len(questions))
	for i, q := range questions {
		texts[i] = strings.TrimSpace(q)
		if texts[i] == "" {
			return nil, goerr.Wrap(model.ErrValidation, "question text is empty", goerr.V("index", i))
		}
	}
	return texts, nil
}

// ListQuestionSets returns the sets the caller authored (HR) or was assigned
// (employee), newest first
func (uc *QuestionSetUseCase) ListQuestionSets(ctx context.Context, session *model.Session) ([]*model.QuestionSet, error) {
	profile, err := requireProfile(session)
	if err != nil {
		return nil, err
	}

	var opt interfaces.ListQuestionSetOption
	if profile.IsHR() {
		opt = interfaces.WithHRID(profile.ID)
	} else {
		opt = interfaces.WithEmployeeID(profile.ID)
	}

	sets, err := uc.repo.QuestionSet().List(ctx, opt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list question sets")
	}

	if profile.IsEmployee() {
		for _, s := range sets {
			s.RiskLevel = types.RiskLevelUnset
		}
	}
	return sets, nil
}

// GetQuestionSet returns a set with its questions. Employees never see risk
// levels.
func (uc *QuestionSetUseCase) GetQuestionSet(ctx context.Context, session *model.Session, id model.QuestionSetID) (*model.QuestionSetDetail, error) {
	profile, err := requireProfile(session)
	if err != nil {
		return nil, err
	}

	set, err := uc.repo.QuestionSet().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get question set", goerr.V(model.QuestionSetIDKey, id))
	}
	if !set.VisibleTo(profile) {
		return nil, goerr.Wrap(ErrAccessDenied, "question set is not visible to the caller",
			goerr.V(model.QuestionSetIDKey, id), goerr.V(model.ProfileIDKey, profile.ID))
	}

	questions, err := uc.repo.Question().ListBySet(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list questions", goerr.V(model.QuestionSetIDKey, id))
	}

	if profile.IsEmployee() {
		set.RiskLevel = types.RiskLevelUnset
		for _, q := range questions {
			q.RiskLevel = types.RiskLevelUnset
		}
	}

	return &model.QuestionSetDetail{QuestionSet: set, Questions: questions}, nil
}
