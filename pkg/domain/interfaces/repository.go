package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

// Repository defines the interface for data persistence
type Repository interface {
	UserProfile() UserProfileRepository
	QuestionSet() QuestionSetRepository
	Question() QuestionRepository
	History() QuestionHistoryRepository

	Close() error
}

// UserProfileRepository stores user_profiles
type UserProfileRepository interface {
	Create(ctx context.Context, profile *model.UserProfile) (*model.UserProfile, error)
	Get(ctx context.Context, id model.UserProfileID) (*model.UserProfile, error)
	// GetByAccountID returns nil, nil when the account has no profile yet
	GetByAccountID(ctx context.Context, accountID model.AccountID) (*model.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	ListByRole(ctx context.Context, role types.Role) ([]*model.UserProfile, error)
	Update(ctx context.Context, profile *model.UserProfile) (*model.UserProfile, error)
}

// QuestionSetRepository stores question_sets together with their questions.
// Every method that touches more than one row is atomic.
type QuestionSetRepository interface {
	// CreateWithQuestions inserts the set and all of its questions, or nothing
	CreateWithQuestions(ctx context.Context, set *model.QuestionSet, questions []*model.Question) (*model.QuestionSet, error)
	Get(ctx context.Context, id model.QuestionSetID) (*model.QuestionSet, error)
	// List returns sets ordered by creation time, newest first
	List(ctx context.Context, opts ...ListQuestionSetOption) ([]*model.QuestionSet, error)

	// CompareAndSwapStatus moves the set from one status to another. It fails
	// with model.ErrStatusConflict when the current status is not from.
	CompareAndSwapStatus(ctx context.Context, id model.QuestionSetID, from, to types.QuestionSetStatus) (*model.QuestionSet, error)

	// SubmitAnswers stores the answers and marks every question answered,
	// then marks the set completed. The set must be pending.
	SubmitAnswers(ctx context.Context, id model.QuestionSetID, answers map[model.QuestionID]string, at time.Time) (*model.QuestionSet, error)

	// CommitAnalysis stores per-question risk levels, marks the set analyzed
	// and appends the history record. The set must be analyzing.
	CommitAnalysis(ctx context.Context, commit *model.AnalysisCommit) (*model.QuestionSet, error)
}

// QuestionRepository reads questions
type QuestionRepository interface {
	Get(ctx context.Context, id model.QuestionID) (*model.Question, error)
	// ListBySet returns the questions of a set ordered by position
	ListBySet(ctx context.Context, setID model.QuestionSetID) ([]*model.Question, error)
}

// QuestionHistoryRepository reads question_history. Records are appended
// only through QuestionSetRepository.CommitAnalysis.
type QuestionHistoryRepository interface {
	// List returns history ordered by completion time, newest first
	List(ctx context.Context, opts ...ListHistoryOption) ([]*model.QuestionHistory, error)
}
