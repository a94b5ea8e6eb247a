package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/secmon-lab/pulsecheck/pkg/repository/memory"
	"github.com/secmon-lab/pulsecheck/pkg/service/worker"
)

func createSet(t *testing.T, repo *memory.Memory, status types.QuestionSetStatus) *model.QuestionSet {
	t.Helper()
	ctx := context.Background()

	set := &model.QuestionSet{
		ID:         model.NewQuestionSetID(),
		HRID:       "hr-1",
		EmployeeID: "emp-1",
		Prompt:     "check-in",
		Status:     types.QuestionSetStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	created, err := repo.QuestionSet().CreateWithQuestions(ctx, set, model.NewQuestions(set, []string{"How are you?"}))
	gt.NoError(t, err).Required()

	if status == types.QuestionSetStatusPending {
		return created
	}

	questions, err := repo.Question().ListBySet(ctx, created.ID)
	gt.NoError(t, err).Required()
	created, err = repo.QuestionSet().SubmitAnswers(ctx, created.ID,
		map[model.QuestionID]string{questions[0].ID: "fine"}, time.Now().UTC())
	gt.NoError(t, err).Required()

	if status == types.QuestionSetStatusAnalyzing {
		created, err = repo.QuestionSet().CompareAndSwapStatus(ctx, created.ID,
			types.QuestionSetStatusCompleted, types.QuestionSetStatusAnalyzing)
		gt.NoError(t, err).Required()
	}
	return created
}

func TestStaleAnalysisWorker_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("releases sets analyzing longer than the timeout", func(t *testing.T) {
		repo := memory.New()
		stale := createSet(t, repo, types.QuestionSetStatusAnalyzing)
		pending := createSet(t, repo, types.QuestionSetStatusPending)

		w := worker.NewStaleAnalysisWorker(repo, time.Minute, 10*time.Minute,
			worker.WithClock(func() time.Time { return time.Now().Add(time.Hour) }))

		released, err := w.Sweep(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, released).Equal(1)

		got, err := repo.QuestionSet().Get(ctx, stale.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.QuestionSetStatusCompleted)

		got, err = repo.QuestionSet().Get(ctx, pending.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.QuestionSetStatusPending)
	})

	t.Run("keeps recent analyses", func(t *testing.T) {
		repo := memory.New()
		recent := createSet(t, repo, types.QuestionSetStatusAnalyzing)

		w := worker.NewStaleAnalysisWorker(repo, time.Minute, 10*time.Minute)

		released, err := w.Sweep(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, released).Equal(0)

		got, err := repo.QuestionSet().Get(ctx, recent.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.QuestionSetStatusAnalyzing)
	})
}

func TestStaleAnalysisWorker_StartStop(t *testing.T) {
	repo := memory.New()
	stale := createSet(t, repo, types.QuestionSetStatusAnalyzing)

	w := worker.NewStaleAnalysisWorker(repo, 10*time.Millisecond, 0)
	gt.NoError(t, w.Start(context.Background())).Required()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := repo.QuestionSet().Get(context.Background(), stale.ID)
		gt.NoError(t, err).Required()
		if got.Status == types.QuestionSetStatusCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	w.Stop()

	got, err := repo.QuestionSet().Get(context.Background(), stale.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(types.QuestionSetStatusCompleted)
}

func TestStaleAnalysisWorker_RejectsZeroInterval(t *testing.T) {
	w := worker.NewStaleAnalysisWorker(memory.New(), 0, time.Minute)
	gt.Error(t, w.Start(context.Background())).Is(model.ErrConfiguration)
}
