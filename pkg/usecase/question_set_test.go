package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/secmon-lab/pulsecheck/pkg/usecase"
)

func TestQuestionSetUseCase_CreateQuestionSet(t *testing.T) {
	ctx := context.Background()

	t.Run("generates and stores pending questions", func(t *testing.T) {
		f := newFixture(t)
		gen := &fakeGenerator{questions: []string{"How is your workload?", "What energizes you?", "Who do you talk to?"}}
		uc := usecase.New(f.repo, usecase.WithGenerator(gen))

		detail, err := uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{
			EmployeeID: f.employee.Profile.ID,
			Prompt:     "  recently moved to a new team  ",
		})
		gt.NoError(t, err).Required()

		gt.Value(t, detail.QuestionSet.Status).Equal(types.QuestionSetStatusPending)
		gt.Value(t, detail.QuestionSet.HRID).Equal(f.hr.Profile.ID)
		gt.Value(t, detail.QuestionSet.EmployeeID).Equal(f.employee.Profile.ID)
		gt.Value(t, detail.QuestionSet.Prompt).Equal("recently moved to a new team")
		gt.Array(t, detail.Questions).Length(3).Required()
		for i, q := range detail.Questions {
			gt.Value(t, q.Text).Equal(gen.questions[i])
			gt.Value(t, q.Status).Equal(types.QuestionStatusPending)
			gt.Value(t, q.Position).Equal(i)
		}

		gt.Value(t, gen.calls).Equal(1)
		gt.Value(t, gen.requests[0].EmployeeID).Equal(f.employee.Profile.ID)
	})

	t.Run("stores the configured creation time", func(t *testing.T) {
		f := newFixture(t)
		at := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
		uc := usecase.New(f.repo,
			usecase.WithGenerator(&fakeGenerator{questions: []string{"Q1?", "Q2?"}}),
			usecase.WithClock(func() time.Time { return at }))

		detail, err := uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{
			EmployeeID: f.employee.Profile.ID,
			Prompt:     "context",
		})
		gt.NoError(t, err).Required()

		stored, err := f.repo.QuestionSet().Get(ctx, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.CreatedAt).Equal(at)

		questions, err := f.repo.Question().ListBySet(ctx, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		for _, q := range questions {
			gt.Value(t, q.CreatedAt).Equal(at)
		}
	})

	t.Run("selects employee by email", func(t *testing.T) {
		f := newFixture(t)
		uc := usecase.New(f.repo, usecase.WithGenerator(&fakeGenerator{questions: []string{"Q?"}}))

		detail, err := uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{
			EmployeeEmail: "OSCAR@example.com",
			Prompt:        "context",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, detail.QuestionSet.EmployeeID).Equal(f.other.Profile.ID)
	})

	t.Run("uses supplied questions without generating", func(t *testing.T) {
		f := newFixture(t)
		gen := &fakeGenerator{questions: []string{"unused?"}}
		uc := usecase.New(f.repo, usecase.WithGenerator(gen))

		detail, err := uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{
			EmployeeID: f.employee.Profile.ID,
			Prompt:     "context",
			Questions:  []string{" Edited question one? ", "Edited question two?"},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, detail.Questions).Length(2).Required()
		gt.Value(t, detail.Questions[0].Text).Equal("Edited question one?")
		gt.Value(t, gen.calls).Equal(0)
	})

	t.Run("empty prompt fails before generation", func(t *testing.T) {
		f := newFixture(t)
		gen := &fakeGenerator{questions: []string{"Q?"}}
		uc := usecase.New(f.repo, usecase.WithGenerator(gen))

		_, err := uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{
			EmployeeID: f.employee.Profile.ID,
			Prompt:     " \n\t",
		})
		gt.Error(t, err).Is(model.ErrValidation)
		gt.Value(t, gen.calls).Equal(0)
	})

	t.Run("missing employee", func(t *testing.T) {
		f := newFixture(t)
		gen := &fakeGenerator{questions: []string{"Q?"}}
		uc := usecase.New(f.repo, usecase.WithGenerator(gen))

		_, err := uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{Prompt: "context"})
		gt.Error(t, err).Is(model.ErrValidation)

		_, err = uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{
			EmployeeID: model.NewUserProfileID(),
			Prompt:     "context",
		})
		gt.Error(t, err).Is(model.ErrValidation)

		// HR profiles cannot be assigned
		_, err = uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{
			EmployeeID: f.hr.Profile.ID,
			Prompt:     "context",
		})
		gt.Error(t, err).Is(model.ErrValidation)
		gt.Value(t, gen.calls).Equal(0)
	})

	t.Run("generation failure stores nothing", func(t *testing.T) {
		f := newFixture(t)
		gen := &fakeGenerator{err: errors.Join(model.ErrGeneration, model.ErrParse)}
		uc := usecase.New(f.repo, usecase.WithGenerator(gen))

		_, err := uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{
			EmployeeID: f.employee.Profile.ID,
			Prompt:     "context",
		})
		gt.Error(t, err).Is(model.ErrGeneration)

		sets, err := f.repo.QuestionSet().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, sets).Length(0)
	})

	t.Run("generator not configured", func(t *testing.T) {
		f := newFixture(t)
		uc := usecase.New(f.repo)

		_, err := uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{
			EmployeeID: f.employee.Profile.ID,
			Prompt:     "context",
		})
		gt.Error(t, err).Is(model.ErrConfiguration)
	})

	t.Run("rejects invalid supplied questions", func(t *testing.T) {
		f := newFixture(t)
		uc := usecase.New(f.repo)

		_, err := uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{
			EmployeeID: f.employee.Profile.ID,
			Prompt:     "context",
			Questions:  []string{"ok?", "  "},
		})
		gt.Error(t, err).Is(model.ErrValidation)

		tooMany := make([]string, model.MaxQuestionsPerSet+1)
		for i := range tooMany {
			tooMany[i] = "Q?"
		}
		_, err = uc.QuestionSet.CreateQuestionSet(ctx, f.hr, usecase.CreateQuestionSetInput{
			EmployeeID: f.employee.Profile.ID,
			Prompt:     "context",
			Questions:  tooMany,
		})
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("employees cannot author", func(t *testing.T) {
		f := newFixture(t)
		uc := usecase.New(f.repo, usecase.WithGenerator(&fakeGenerator{questions: []string{"Q?"}}))

		_, err := uc.QuestionSet.CreateQuestionSet(ctx, f.employee, usecase.CreateQuestionSetInput{
			EmployeeID: f.other.Profile.ID,
			Prompt:     "context",
		})
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})

	t.Run("account without profile", func(t *testing.T) {
		f := newFixture(t)
		uc := usecase.New(f.repo)

		_, err := uc.QuestionSet.CreateQuestionSet(ctx, &model.Session{AccountID: "new"}, usecase.CreateQuestionSetInput{})
		gt.Error(t, err).Is(usecase.ErrProfileRequired)
	})
}

func TestQuestionSetUseCase_GenerateQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gen := &fakeGenerator{questions: []string{"A?", "B?"}}
	uc := usecase.New(f.repo, usecase.WithGenerator(gen))

	got, err := uc.QuestionSet.GenerateQuestions(ctx, f.hr, "context", f.employee.Profile.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got).Equal([]string{"A?", "B?"})

	sets, err := f.repo.QuestionSet().List(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, sets).Length(0)

	_, err = uc.QuestionSet.GenerateQuestions(ctx, f.hr, "", "")
	gt.Error(t, err).Is(model.ErrValidation)
	gt.Value(t, gen.calls).Equal(1)
}

func TestQuestionSetUseCase_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := usecase.New(f.repo, usecase.WithClassifier(&fakeClassifier{fn: func(items []model.ClassificationItem) (*model.Classification, error) {
		results := make([]model.ItemResult, len(items))
		for i, item := range items {
			results[i] = model.ItemResult{QuestionID: item.QuestionID, RiskLevel: types.RiskLevelMedium, Probability: 0.5}
		}
		return &model.Classification{Results: results, OverallRisk: types.RiskLevelMedium}, nil
	}}))

	detail := createAnswered(t, f, f.repo, "busy", "okay")
	_, err := uc.Analysis.Analyze(ctx, f.hr, detail.QuestionSet.ID)
	gt.NoError(t, err).Required()

	t.Run("HR sees risk levels", func(t *testing.T) {
		got, err := uc.QuestionSet.GetQuestionSet(ctx, f.hr, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.QuestionSet.RiskLevel).Equal(types.RiskLevelMedium)
		gt.Value(t, got.Questions[0].RiskLevel).Equal(types.RiskLevelMedium)
	})

	t.Run("employee view hides risk levels", func(t *testing.T) {
		got, err := uc.QuestionSet.GetQuestionSet(ctx, f.employee, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.QuestionSet.RiskLevel).Equal(types.RiskLevelUnset)
		for _, q := range got.Questions {
			gt.Value(t, q.RiskLevel).Equal(types.RiskLevelUnset)
			gt.Value(t, q.Status).Equal(types.QuestionStatusAnalyzed)
		}

		sets, err := uc.QuestionSet.ListQuestionSets(ctx, f.employee)
		gt.NoError(t, err).Required()
		gt.Array(t, sets).Length(1).Required()
		gt.Value(t, sets[0].RiskLevel).Equal(types.RiskLevelUnset)
	})

	t.Run("other employees are denied", func(t *testing.T) {
		_, err := uc.QuestionSet.GetQuestionSet(ctx, f.other, detail.QuestionSet.ID)
		gt.Error(t, err).Is(usecase.ErrAccessDenied)

		sets, err := uc.QuestionSet.ListQuestionSets(ctx, f.other)
		gt.NoError(t, err).Required()
		gt.Array(t, sets).Length(0)
	})

	t.Run("unknown set", func(t *testing.T) {
		_, err := uc.QuestionSet.GetQuestionSet(ctx, f.hr, model.NewQuestionSetID())
		gt.Error(t, err).Is(model.ErrNotFound)
	})
}
