package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

type questionSetRepository struct {
	m *Memory
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyQuestionSet(s *model.QuestionSet) *model.QuestionSet {
	copied := *s
	copied.CompletedAt = copyTime(s.CompletedAt)
	return &copied
}

func copyQuestion(q *model.Question) *model.Question {
	copied := *q
	copied.AnsweredAt = copyTime(q.AnsweredAt)
	return &copied
}

func (r *questionSetRepository) CreateWithQuestions(ctx context.Context, set *model.QuestionSet, questions []*model.Question) (*model.QuestionSet, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.sets[set.ID]; exists {
		return nil, goerr.Wrap(model.ErrAlreadyExists, "question set already exists", goerr.V(model.QuestionSetIDKey, set.ID))
	}
	for _, q := range questions {
		if q.QuestionSetID != set.ID {
			return nil, goerr.Wrap(model.ErrValidation, "question belongs to another set", goerr.V(model.QuestionIDKey, q.ID))
		}
	}

	now := time.Now().UTC()
	created := copyQuestionSet(set)
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = now
	r.m.sets[created.ID] = created

	for _, q := range questions {
		c := copyQuestion(q)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = created.CreatedAt
		}
		r.m.questions[c.ID] = c
	}

	return copyQuestionSet(created), nil
}

func (r *questionSetRepository) Get(ctx context.Context, id model.QuestionSetID) (*model.QuestionSet, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	s, ok := r.m.sets[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "question set not found", goerr.V(model.QuestionSetIDKey, id))
	}
	return copyQuestionSet(s), nil
}

func (r *questionSetRepository) List(ctx context.Context, opts ...interfaces.ListQuestionSetOption) ([]*model.QuestionSet, error) {
	cfg := interfaces.BuildListQuestionSetConfig(opts...)

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	sets := make([]*model.QuestionSet, 0)
	for _, s := range r.m.sets {
		if cfg.Match(s) {
			sets = append(sets, copyQuestionSet(s))
		}
	}
	sort.Slice(sets, func(i, j int) bool {
		return sets[i].CreatedAt.After(sets[j].CreatedAt)
	})
	return sets, nil
}

func (r *questionSetRepository) CompareAndSwapStatus(ctx context.Context, id model.QuestionSetID, from, to types.QuestionSetStatus) (*model.QuestionSet, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.sets[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "question set not found", goerr.V(model.QuestionSetIDKey, id))
	}
	if s.Status != from {
		return nil, goerr.Wrap(model.ErrStatusConflict, "unexpected question set status",
			goerr.V(model.QuestionSetIDKey, id),
			goerr.V(model.StatusKey, s.Status),
			goerr.V("expected", from))
	}

	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	return copyQuestionSet(s), nil
}

func (r *questionSetRepository) SubmitAnswers(ctx context.Context, id model.QuestionSetID, answers map[model.QuestionID]string, at time.Time) (*model.QuestionSet, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.sets[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "question set not found", goerr.V(model.QuestionSetIDKey, id))
	}
	if s.Status != types.QuestionSetStatusPending {
		return nil, goerr.Wrap(model.ErrStatusConflict, "question set is not pending",
			goerr.V(model.QuestionSetIDKey, id), goerr.V(model.StatusKey, s.Status))
	}

	// Validate everything before mutating so a failure leaves no trace.
	for qid := range answers {
		q, ok := r.m.questions[qid]
		if !ok || q.QuestionSetID != id {
			return nil, goerr.Wrap(model.ErrValidation, "question does not belong to set",
				goerr.V(model.QuestionSetIDKey, id), goerr.V(model.QuestionIDKey, qid))
		}
	}

	at = at.UTC()
	for qid, text := range answers {
		q := r.m.questions[qid]
		q.AnswerText = text
		q.Status = types.QuestionStatusAnswered
		q.AnsweredAt = &at
	}

	s.Status = types.QuestionSetStatusCompleted
	s.CompletedAt = &at
	s.UpdatedAt = at
	return copyQuestionSet(s), nil
}

func (r *questionSetRepository) CommitAnalysis(ctx context.Context, commit *model.AnalysisCommit) (*model.QuestionSet, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.sets[commit.QuestionSetID]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "question set not found", goerr.V(model.QuestionSetIDKey, commit.QuestionSetID))
	}
	if s.Status != types.QuestionSetStatusAnalyzing {
		return nil, goerr.Wrap(model.ErrStatusConflict, "question set is not being analyzed",
			goerr.V(model.QuestionSetIDKey, s.ID), goerr.V(model.StatusKey, s.Status))
	}
	for _, res := range commit.Results {
		q, ok := r.m.questions[res.QuestionID]
		if !ok || q.QuestionSetID != s.ID {
			return nil, goerr.Wrap(model.ErrValidation, "question does not belong to set",
				goerr.V(model.QuestionSetIDKey, s.ID), goerr.V(model.QuestionIDKey, res.QuestionID))
		}
	}

	for _, res := range commit.Results {
		q := r.m.questions[res.QuestionID]
		q.Status = types.QuestionStatusAnalyzed
		q.RiskLevel = res.RiskLevel
	}

	at := commit.AnalyzedAt.UTC()
	s.Status = types.QuestionSetStatusAnalyzed
	s.RiskLevel = commit.OverallRisk
	s.CompletedAt = &at
	s.UpdatedAt = at

	if commit.History != nil {
		h := *commit.History
		r.m.history = append(r.m.history, &h)
	}

	return copyQuestionSet(s), nil
}
