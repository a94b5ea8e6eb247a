package model

import (
	"time"

	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

// QuestionRisk is the risk label assigned to one question
type QuestionRisk struct {
	QuestionID QuestionID
	RiskLevel  types.RiskLevel
}

// AnalysisCommit carries every write of a finished analysis so that the
// store can apply it in a single transaction.
type AnalysisCommit struct {
	QuestionSetID QuestionSetID
	Results       []QuestionRisk
	OverallRisk   types.RiskLevel
	AnalyzedAt    time.Time
	History       *QuestionHistory
}

// NewAnalysisCommit builds the commit for a set from a classification result
func NewAnalysisCommit(set *QuestionSet, c *Classification, at time.Time) *AnalysisCommit {
	results := make([]QuestionRisk, len(c.Results))
	for i, r := range c.Results {
		results[i] = QuestionRisk{QuestionID: r.QuestionID, RiskLevel: r.RiskLevel}
	}

	return &AnalysisCommit{
		QuestionSetID: set.ID,
		Results:       results,
		OverallRisk:   c.OverallRisk,
		AnalyzedAt:    at,
		History: &QuestionHistory{
			ID:               NewQuestionHistoryID(),
			QuestionSetID:    set.ID,
			EmployeeID:       set.EmployeeID,
			HRID:             set.HRID,
			OverallRiskLevel: c.OverallRisk,
			CompletedAt:      at,
		},
	}
}
