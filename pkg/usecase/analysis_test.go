package usecase_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/secmon-lab/pulsecheck/pkg/service/classifier"
	"github.com/secmon-lab/pulsecheck/pkg/service/worker"
	"github.com/secmon-lab/pulsecheck/pkg/usecase"
)

func lexical() classifier.Classifier {
	return classifier.NewLexical(classifier.WithRandom(rand.New(rand.NewPCG(7, 7))))
}

func TestAnalysisUseCase_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("high risk answer escalates the set and is recorded", func(t *testing.T) {
		f := newFixture(t)
		notifier := newFakeNotifier()
		uc := usecase.New(f.repo, usecase.WithClassifier(lexical()), usecase.WithNotifier(notifier))
		detail := createAnswered(t, f, f.repo,
			"I feel hopeless and trapped, I want to die",
			"Work is fine",
			"I sleep okay")

		result, err := uc.Analysis.Analyze(ctx, f.hr, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, result.Classification.OverallRisk).Equal(types.RiskLevelHigh)
		gt.Value(t, result.QuestionSet.Status).Equal(types.QuestionSetStatusAnalyzed)
		gt.Value(t, result.QuestionSet.RiskLevel).Equal(types.RiskLevelHigh)

		questions, err := f.repo.Question().ListBySet(ctx, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, questions[0].RiskLevel).Equal(types.RiskLevelHigh)
		for _, q := range questions {
			gt.Value(t, q.Status).Equal(types.QuestionStatusAnalyzed)
			gt.Bool(t, q.RiskLevel.IsSet()).True()
		}

		history, err := uc.Analysis.ListHistory(ctx, f.hr)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(1).Required()
		gt.Value(t, history[0].QuestionSetID).Equal(detail.QuestionSet.ID)
		gt.Value(t, history[0].OverallRiskLevel).Equal(types.RiskLevelHigh)

		select {
		case alert := <-notifier.alerts:
			gt.Value(t, alert.QuestionSetID).Equal(detail.QuestionSet.ID)
			gt.Value(t, alert.EmployeeName).Equal("eli")
			gt.Value(t, alert.HighCount).Equal(1)
		case <-time.After(2 * time.Second):
			t.Fatal("risk alert was not posted")
		}
	})

	t.Run("neutral answers are low and do not alert", func(t *testing.T) {
		f := newFixture(t)
		notifier := newFakeNotifier()
		uc := usecase.New(f.repo, usecase.WithClassifier(lexical()), usecase.WithNotifier(notifier))
		detail := createAnswered(t, f, f.repo,
			"Work has been going well and I enjoy my team.",
			"I went hiking with friends on the weekend.",
			"My sleep schedule is regular these days.")

		result, err := uc.Analysis.Analyze(ctx, f.hr, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, result.Classification.OverallRisk).Equal(types.RiskLevelLow)
		for _, r := range result.Classification.Results {
			gt.Value(t, r.RiskLevel).Equal(types.RiskLevelLow)
		}

		select {
		case <-notifier.alerts:
			t.Fatal("unexpected alert")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("pending set cannot be analyzed", func(t *testing.T) {
		f := newFixture(t)
		uc := usecase.New(f.repo)
		detail := createPending(t, f, uc, "A?")

		_, err := uc.Analysis.Analyze(ctx, f.hr, detail.QuestionSet.ID)
		gt.Error(t, err).Is(model.ErrStatusConflict)
	})

	t.Run("analyzed set cannot be analyzed again", func(t *testing.T) {
		f := newFixture(t)
		uc := usecase.New(f.repo, usecase.WithClassifier(lexical()))
		detail := createAnswered(t, f, f.repo, "fine")

		_, err := uc.Analysis.Analyze(ctx, f.hr, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		_, err = uc.Analysis.Analyze(ctx, f.hr, detail.QuestionSet.ID)
		gt.Error(t, err).Is(model.ErrStatusConflict)

		history, err := f.repo.History().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(1)
	})

	t.Run("concurrent analyses classify once", func(t *testing.T) {
		f := newFixture(t)
		var mu sync.Mutex
		calls := 0
		fake := &fakeClassifier{fn: func(items []model.ClassificationItem) (*model.Classification, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			results := make([]model.ItemResult, len(items))
			for i, item := range items {
				results[i] = model.ItemResult{QuestionID: item.QuestionID, RiskLevel: types.RiskLevelLow}
			}
			return &model.Classification{Results: results, OverallRisk: types.RiskLevelLow}, nil
		}}
		uc := usecase.New(f.repo, usecase.WithClassifier(&lockedClassifier{c: fake}))
		detail := createAnswered(t, f, f.repo, "fine", "good")

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = uc.Analysis.Analyze(ctx, f.hr, detail.QuestionSet.ID)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				gt.Error(t, err).Is(model.ErrStatusConflict)
			}
		}
		gt.Value(t, succeeded).Equal(1)
		gt.Value(t, calls).Equal(1)
	})

	t.Run("only the author can analyze", func(t *testing.T) {
		f := newFixture(t)
		uc := usecase.New(f.repo, usecase.WithClassifier(lexical()))
		detail := createAnswered(t, f, f.repo, "fine")
		otherHR := newSession(t, f.repo, types.RoleHR, "harper")

		_, err := uc.Analysis.Analyze(ctx, otherHR, detail.QuestionSet.ID)
		gt.Error(t, err).Is(usecase.ErrAccessDenied)

		_, err = uc.Analysis.Analyze(ctx, f.employee, detail.QuestionSet.ID)
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})

	t.Run("classifier failure releases the set", func(t *testing.T) {
		f := newFixture(t)
		fake := &fakeClassifier{fn: func(items []model.ClassificationItem) (*model.Classification, error) {
			return nil, errors.Join(model.ErrParse, errors.New("overall_risk missing"))
		}}
		uc := usecase.New(f.repo, usecase.WithClassifier(fake))
		detail := createAnswered(t, f, f.repo, "fine")

		_, err := uc.Analysis.Analyze(ctx, f.hr, detail.QuestionSet.ID)
		gt.Error(t, err).Is(model.ErrParse)

		set, err := f.repo.QuestionSet().Get(ctx, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, set.Status).Equal(types.QuestionSetStatusCompleted)
		gt.Value(t, set.RiskLevel).Equal(types.RiskLevelUnset)
	})

	t.Run("commit failure releases the set", func(t *testing.T) {
		f := newFixture(t)
		repo := &failingRepo{Memory: f.repo, commitErr: errors.New("disk full")}
		uc := usecase.New(repo, usecase.WithClassifier(lexical()))
		detail := createAnswered(t, f, repo, "fine")

		_, err := uc.Analysis.Analyze(ctx, f.hr, detail.QuestionSet.ID)
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, model.ErrPartialUpdate)).False()

		set, err := f.repo.QuestionSet().Get(ctx, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, set.Status).Equal(types.QuestionSetStatusCompleted)
	})

	t.Run("failed release reports a partial update", func(t *testing.T) {
		f := newFixture(t)
		repo := &failingRepo{
			Memory:     f.repo,
			commitErr:  errors.New("disk full"),
			releaseErr: errors.New("connection lost"),
		}
		uc := usecase.New(repo, usecase.WithClassifier(lexical()))
		detail := createAnswered(t, f, repo, "fine")

		_, err := uc.Analysis.Analyze(ctx, f.hr, detail.QuestionSet.ID)
		gt.Error(t, err).Is(model.ErrPartialUpdate)

		var partial *model.PartialUpdateError
		gt.Bool(t, errors.As(err, &partial)).True()
		gt.Array(t, partial.Updated).Length(1).Required()
		gt.Value(t, partial.Updated[0]).Equal(detail.QuestionSet.Ref())

		set, err := f.repo.QuestionSet().Get(ctx, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, set.Status).Equal(types.QuestionSetStatusAnalyzing)
	})

	t.Run("set released by the stale worker mid analysis is a conflict", func(t *testing.T) {
		f := newFixture(t)
		w := worker.NewStaleAnalysisWorker(f.repo, time.Minute, 10*time.Minute,
			worker.WithClock(func() time.Time { return time.Now().Add(time.Hour) }))

		var released int
		fake := &fakeClassifier{fn: func(items []model.ClassificationItem) (*model.Classification, error) {
			n, err := w.Sweep(ctx)
			if err != nil {
				return nil, err
			}
			released = n

			results := make([]model.ItemResult, len(items))
			for i, item := range items {
				results[i] = model.ItemResult{QuestionID: item.QuestionID, RiskLevel: types.RiskLevelLow}
			}
			return &model.Classification{Results: results, OverallRisk: types.RiskLevelLow}, nil
		}}
		uc := usecase.New(f.repo, usecase.WithClassifier(fake))
		detail := createAnswered(t, f, f.repo, "fine")

		_, err := uc.Analysis.Analyze(ctx, f.hr, detail.QuestionSet.ID)
		gt.Value(t, released).Equal(1)
		gt.Error(t, err).Is(model.ErrStatusConflict)
		gt.Bool(t, errors.Is(err, model.ErrPartialUpdate)).False()

		set, err := f.repo.QuestionSet().Get(ctx, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, set.Status).Equal(types.QuestionSetStatusCompleted)
		gt.Value(t, set.RiskLevel).Equal(types.RiskLevelUnset)
	})
}

// lockedClassifier serializes a fakeClassifier for concurrent tests
type lockedClassifier struct {
	mu sync.Mutex
	c  *fakeClassifier
}

func (l *lockedClassifier) Name() string { return l.c.Name() }

func (l *lockedClassifier) Classify(ctx context.Context, items []model.ClassificationItem) (*model.Classification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Classify(ctx, items)
}

func TestAnalysisUseCase_Classify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := usecase.New(f.repo, usecase.WithClassifier(lexical()))
	detail := createPending(t, f, uc, "How are you?", "How is work?")

	t.Run("classifies without storing", func(t *testing.T) {
		c, err := uc.Analysis.Classify(ctx, f.hr, detail.QuestionSet.ID, []usecase.ClassifyAnswer{
			{QuestionID: detail.Questions[0].ID, AnswerText: "I can't go on like this"},
			{QuestionID: detail.Questions[1].ID, AnswerText: ""},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, c.Results).Length(1)
		gt.Value(t, c.OverallRisk).Equal(types.RiskLevelHigh)

		set, err := f.repo.QuestionSet().Get(ctx, detail.QuestionSet.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, set.Status).Equal(types.QuestionSetStatusPending)
	})

	t.Run("no answers", func(t *testing.T) {
		_, err := uc.Analysis.Classify(ctx, f.hr, detail.QuestionSet.ID, nil)
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("foreign question", func(t *testing.T) {
		_, err := uc.Analysis.Classify(ctx, f.hr, detail.QuestionSet.ID, []usecase.ClassifyAnswer{
			{QuestionID: model.NewQuestionID(), AnswerText: "fine"},
		})
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("employees cannot classify", func(t *testing.T) {
		_, err := uc.Analysis.Classify(ctx, f.employee, detail.QuestionSet.ID, nil)
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})
}

func TestAnalysisUseCase_ListHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := usecase.New(f.repo, usecase.WithClassifier(lexical()))

	first := createAnswered(t, f, f.repo, "I feel worthless")
	_, err := uc.Analysis.Analyze(ctx, f.hr, first.QuestionSet.ID)
	gt.NoError(t, err).Required()

	t.Run("employee sees own history without risk", func(t *testing.T) {
		history, err := uc.Analysis.ListHistory(ctx, f.employee)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(1).Required()
		gt.Value(t, history[0].OverallRiskLevel).Equal(types.RiskLevelUnset)
	})

	t.Run("unrelated employee sees nothing", func(t *testing.T) {
		history, err := uc.Analysis.ListHistory(ctx, f.other)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(0)
	})
}
