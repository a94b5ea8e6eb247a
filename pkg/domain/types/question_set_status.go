package types

import "fmt"

// QuestionSetStatus represents the lifecycle state of a question set.
//
//	pending -> completed -> analyzing -> analyzed
//
// analyzing is held only while a classification is in flight and is
// reverted to completed when the analysis fails.
type QuestionSetStatus string

const (
	QuestionSetStatusPending   QuestionSetStatus = "pending"
	QuestionSetStatusCompleted QuestionSetStatus = "completed"
	QuestionSetStatusAnalyzing QuestionSetStatus = "analyzing"
	QuestionSetStatusAnalyzed  QuestionSetStatus = "analyzed"
)

// AllQuestionSetStatuses returns all valid question set statuses
func AllQuestionSetStatuses() []QuestionSetStatus {
	return []QuestionSetStatus{
		QuestionSetStatusPending,
		QuestionSetStatusCompleted,
		QuestionSetStatusAnalyzing,
		QuestionSetStatusAnalyzed,
	}
}

// IsValid checks if the status is valid
func (s QuestionSetStatus) IsValid() bool {
	switch s {
	case QuestionSetStatusPending,
		QuestionSetStatusCompleted,
		QuestionSetStatusAnalyzing,
		QuestionSetStatusAnalyzed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is a legal step.
func (s QuestionSetStatus) CanTransitionTo(next QuestionSetStatus) bool {
	switch s {
	case QuestionSetStatusPending:
		return next == QuestionSetStatusCompleted
	case QuestionSetStatusCompleted:
		return next == QuestionSetStatusAnalyzing
	case QuestionSetStatusAnalyzing:
		return next == QuestionSetStatusAnalyzed || next == QuestionSetStatusCompleted
	default:
		return false
	}
}

func (s QuestionSetStatus) String() string {
	return string(s)
}

// ParseQuestionSetStatus parses a string into a QuestionSetStatus
func ParseQuestionSetStatus(s string) (QuestionSetStatus, error) {
	status := QuestionSetStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid question set status: %s", s)
	}
	return status, nil
}
