package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

// QuestionHistoryID is a UUID-based identifier for QuestionHistory
type QuestionHistoryID string

// NewQuestionHistoryID generates a new UUID v4 QuestionHistoryID
func NewQuestionHistoryID() QuestionHistoryID {
	return QuestionHistoryID(uuid.New().String())
}

// QuestionHistory is an append-only record of a finished analysis
type QuestionHistory struct {
	ID               QuestionHistoryID
	QuestionSetID    QuestionSetID
	EmployeeID       UserProfileID
	HRID             UserProfileID
	OverallRiskLevel types.RiskLevel
	CompletedAt      time.Time
}
