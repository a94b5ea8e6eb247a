package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

// QuestionID is a UUID-based identifier for Question
type QuestionID string

// NewQuestionID generates a new UUID v4 QuestionID
func NewQuestionID() QuestionID {
	return QuestionID(uuid.New().String())
}

func (id QuestionID) String() string {
	return string(id)
}

// Question is a single question of a set together with the employee's answer.
// An empty AnswerText means the question has not been answered.
type Question struct {
	ID            QuestionID
	QuestionSetID QuestionSetID
	EmployeeID    UserProfileID
	HRID          UserProfileID
	Position      int
	Text          string
	AnswerText    string `masq:"secret"`
	Status        types.QuestionStatus
	RiskLevel     types.RiskLevel
	CreatedAt     time.Time
	AnsweredAt    *time.Time
}

// HasAnswer returns true if the question carries a non-blank answer
func (q *Question) HasAnswer() bool {
	return strings.TrimSpace(q.AnswerText) != ""
}

// NewQuestions builds pending questions of a set in the given order
func NewQuestions(set *QuestionSet, texts []string) []*Question {
	questions := make([]*Question, len(texts))
	for i, text := range texts {
		questions[i] = &Question{
			ID:            NewQuestionID(),
			QuestionSetID: set.ID,
			EmployeeID:    set.EmployeeID,
			HRID:          set.HRID,
			Position:      i,
			Text:          text,
			Status:        types.QuestionStatusPending,
			CreatedAt:     set.CreatedAt,
		}
	}
	return questions
}
