package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

// MaxQuestionsPerSet is the upper bound of questions kept from one generation
const MaxQuestionsPerSet = 10

// QuestionSetID is a UUID-based identifier for QuestionSet
type QuestionSetID string

// NewQuestionSetID generates a new UUID v4 QuestionSetID
func NewQuestionSetID() QuestionSetID {
	return QuestionSetID(uuid.New().String())
}

func (id QuestionSetID) String() string {
	return string(id)
}

// QuestionSet is one assessment authored by an HR user for an employee
type QuestionSet struct {
	ID          QuestionSetID
	HRID        UserProfileID
	EmployeeID  UserProfileID
	Prompt      string
	Status      types.QuestionSetStatus
	RiskLevel   types.RiskLevel
	CreatedAt   time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// Ref returns the entity reference of the set
func (s *QuestionSet) Ref() EntityRef {
	return EntityRef{Kind: "question_set", ID: s.ID.String()}
}

// VisibleTo reports whether the profile is the author or the assignee of the set
func (s *QuestionSet) VisibleTo(p *UserProfile) bool {
	if p == nil {
		return false
	}
	switch p.Role {
	case types.RoleHR:
		return s.HRID == p.ID
	case types.RoleEmployee:
		return s.EmployeeID == p.ID
	default:
		return false
	}
}
