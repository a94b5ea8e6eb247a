package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/service/classifier"
	"github.com/secmon-lab/pulsecheck/pkg/service/generator"
)

// QuestionGenerator produces questions for a prompt
type QuestionGenerator interface {
	Generate(ctx context.Context, req generator.Request) ([]string, error)
}

type UseCases struct {
	repo       interfaces.Repository
	generator  QuestionGenerator
	classifier classifier.Classifier
	notifier   interfaces.Notifier
	now        func() time.Time

	Profile     *ProfileUseCase
	QuestionSet *QuestionSetUseCase
	Response    *ResponseUseCase
	Analysis    *AnalysisUseCase
	Dashboard   *DashboardUseCase
	Auth        AuthUseCaseInterface
}

type Option func(*UseCases)

// WithGenerator sets the question generator. Without it, question sets can
// only be created from explicit questions.
func WithGenerator(g QuestionGenerator) Option {
	return func(uc *UseCases) {
		uc.generator = g
	}
}

// WithClassifier sets the risk classifier
func WithClassifier(c classifier.Classifier) Option {
	return func(uc *UseCases) {
		uc.classifier = c
	}
}

// WithNotifier enables alerts for high risk analyses
func WithNotifier(n interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = n
	}
}

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

// WithClock replaces the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:       repo,
		classifier: classifier.NewLexical(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	clock := func() time.Time { return uc.now().UTC() }

	uc.Profile = NewProfileUseCase(repo, clock)
	uc.QuestionSet = NewQuestionSetUseCase(repo, uc.generator, clock)
	uc.Response = NewResponseUseCase(repo, clock)
	uc.Analysis = NewAnalysisUseCase(repo, uc.classifier, uc.notifier, clock)
	uc.Dashboard = NewDashboardUseCase(repo)

	return uc
}

func requireProfile(session *model.Session) (*model.UserProfile, error) {
	if session == nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "session is required")
	}
	if !session.HasProfile() {
		return nil, goerr.Wrap(ErrProfileRequired, "sign up before using this operation",
			goerr.V(AccountIDKey, session.AccountID))
	}
	return session.Profile, nil
}

func requireHR(session *model.Session) (*model.UserProfile, error) {
	profile, err := requireProfile(session)
	if err != nil {
		return nil, err
	}
	if !profile.IsHR() {
		return nil, goerr.Wrap(ErrAccessDenied, "HR role is required",
			goerr.V(model.ProfileIDKey, profile.ID), goerr.V(RoleKey, profile.Role))
	}
	return profile, nil
}
