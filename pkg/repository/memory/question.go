package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
)

type questionRepository struct {
	m *Memory
}

func (r *questionRepository) Get(ctx context.Context, id model.QuestionID) (*model.Question, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	q, ok := r.m.questions[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "question not found", goerr.V(model.QuestionIDKey, id))
	}
	return copyQuestion(q), nil
}

func (r *questionRepository) ListBySet(ctx context.Context, setID model.QuestionSetID) ([]*model.Question, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	questions := make([]*model.Question, 0)
	for _, q := range r.m.questions {
		if q.QuestionSetID == setID {
			questions = append(questions, copyQuestion(q))
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].Position < questions[j].Position
	})
	return questions, nil
}

type historyRepository struct {
	m *Memory
}

func (r *historyRepository) List(ctx context.Context, opts ...interfaces.ListHistoryOption) ([]*model.QuestionHistory, error) {
	cfg := interfaces.BuildListHistoryConfig(opts...)

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	records := make([]*model.QuestionHistory, 0)
	for _, h := range r.m.history {
		if cfg.Match(h) {
			copied := *h
			records = append(records, &copied)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CompletedAt.After(records[j].CompletedAt)
	})
	return records, nil
}
