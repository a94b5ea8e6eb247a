package types

import "fmt"

// QuestionStatus represents the state of a single question
type QuestionStatus string

const (
	QuestionStatusPending  QuestionStatus = "pending"
	QuestionStatusAnswered QuestionStatus = "answered"
	QuestionStatusAnalyzed QuestionStatus = "analyzed"
)

// AllQuestionStatuses returns all valid question statuses
func AllQuestionStatuses() []QuestionStatus {
	return []QuestionStatus{
		QuestionStatusPending,
		QuestionStatusAnswered,
		QuestionStatusAnalyzed,
	}
}

// IsValid checks if the question status is valid
func (s QuestionStatus) IsValid() bool {
	switch s {
	case QuestionStatusPending,
		QuestionStatusAnswered,
		QuestionStatusAnalyzed:
		return true
	default:
		return false
	}
}

func (s QuestionStatus) String() string {
	return string(s)
}

// ParseQuestionStatus parses a string into a QuestionStatus
func ParseQuestionStatus(s string) (QuestionStatus, error) {
	status := QuestionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid question status: %s", s)
	}
	return status, nil
}
