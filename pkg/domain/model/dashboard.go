package model

import "github.com/secmon-lab/pulsecheck/pkg/domain/types"

// QuestionSetDetail is a question set with its questions in order
type QuestionSetDetail struct {
	QuestionSet *QuestionSet
	Questions   []*Question
}

// DashboardSummary aggregates the question sets and history visible to a user
type DashboardSummary struct {
	TotalSets     int
	ByStatus      map[types.QuestionSetStatus]int
	ByRisk        map[types.RiskLevel]int
	RecentHistory []*QuestionHistory
}

// AnalysisResult is the outcome of analyzing a question set
type AnalysisResult struct {
	QuestionSet    *QuestionSet
	Classification *Classification
}
