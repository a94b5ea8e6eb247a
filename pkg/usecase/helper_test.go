package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/secmon-lab/pulsecheck/pkg/repository/memory"
	"github.com/secmon-lab/pulsecheck/pkg/service/generator"
)

func newSession(t *testing.T, repo interfaces.Repository, role types.Role, name string) *model.Session {
	t.Helper()

	now := time.Now().UTC()
	profile, err := repo.UserProfile().Create(context.Background(), &model.UserProfile{
		ID:        model.NewUserProfileID(),
		AccountID: model.AccountID("acct-" + name),
		Role:      role,
		Name:      name,
		Email:     name + "@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	})
	gt.NoError(t, err).Required()

	return &model.Session{
		AccountID: profile.AccountID,
		Email:     profile.Email,
		Name:      profile.Name,
		TokenID:   "token-" + name,
		ExpiresAt: now.Add(time.Hour),
		Profile:   profile,
	}
}

type fixture struct {
	repo     *memory.Memory
	hr       *model.Session
	employee *model.Session
	other    *model.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.New()
	return &fixture{
		repo:     repo,
		hr:       newSession(t, repo, types.RoleHR, "hana"),
		employee: newSession(t, repo, types.RoleEmployee, "eli"),
		other:    newSession(t, repo, types.RoleEmployee, "oscar"),
	}
}

type fakeGenerator struct {
	mu        sync.Mutex
	questions []string
	err       error
	calls     int
	requests  []generator.Request
}

func (g *fakeGenerator) Generate(ctx context.Context, req generator.Request) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return append([]string(nil), g.questions...), nil
}

type fakeClassifier struct {
	fn    func(items []model.ClassificationItem) (*model.Classification, error)
	calls int
}

func (c *fakeClassifier) Name() string { return "fake" }

func (c *fakeClassifier) Classify(ctx context.Context, items []model.ClassificationItem) (*model.Classification, error) {
	c.calls++
	return c.fn(items)
}

type fakeNotifier struct {
	alerts chan *model.RiskAlert
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{alerts: make(chan *model.RiskAlert, 4)}
}

func (n *fakeNotifier) PostRiskAlert(ctx context.Context, alert *model.RiskAlert) error {
	n.alerts <- alert
	return nil
}

// failingRepo lets a test break individual question set writes
type failingRepo struct {
	*memory.Memory
	commitErr  error
	releaseErr error
}

func (r *failingRepo) QuestionSet() interfaces.QuestionSetRepository {
	return &failingQuestionSetRepo{QuestionSetRepository: r.Memory.QuestionSet(), r: r}
}

type failingQuestionSetRepo struct {
	interfaces.QuestionSetRepository
	r *failingRepo
}

func (q *failingQuestionSetRepo) CommitAnalysis(ctx context.Context, commit *model.AnalysisCommit) (*model.QuestionSet, error) {
	if q.r.commitErr != nil {
		return nil, q.r.commitErr
	}
	return q.QuestionSetRepository.CommitAnalysis(ctx, commit)
}

func (q *failingQuestionSetRepo) CompareAndSwapStatus(ctx context.Context, id model.QuestionSetID, from, to types.QuestionSetStatus) (*model.QuestionSet, error) {
	if q.r.releaseErr != nil && from == types.QuestionSetStatusAnalyzing {
		return nil, q.r.releaseErr
	}
	return q.QuestionSetRepository.CompareAndSwapStatus(ctx, id, from, to)
}

// createAnswered creates a set for the fixture employee and submits answers
// in question order
func createAnswered(t *testing.T, f *fixture, repo interfaces.Repository, answers ...string) *model.QuestionSetDetail {
	t.Helper()
	ctx := context.Background()

	questions := make([]string, len(answers))
	for i := range answers {
		questions[i] = "Question " + string(rune('A'+i)) + "?"
	}

	set := &model.QuestionSet{
		ID:         model.NewQuestionSetID(),
		HRID:       f.hr.Profile.ID,
		EmployeeID: f.employee.Profile.ID,
		Prompt:     "quarterly check-in",
		Status:     types.QuestionSetStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	created, err := repo.QuestionSet().CreateWithQuestions(ctx, set, model.NewQuestions(set, questions))
	gt.NoError(t, err).Required()

	stored, err := repo.Question().ListBySet(ctx, created.ID)
	gt.NoError(t, err).Required()

	byID := make(map[model.QuestionID]string, len(stored))
	for i, q := range stored {
		byID[q.ID] = answers[i]
	}
	completed, err := repo.QuestionSet().SubmitAnswers(ctx, created.ID, byID, time.Now().UTC())
	gt.NoError(t, err).Required()

	stored, err = repo.Question().ListBySet(ctx, created.ID)
	gt.NoError(t, err).Required()
	return &model.QuestionSetDetail{QuestionSet: completed, Questions: stored}
}
