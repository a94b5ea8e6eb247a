package model

import (
	"time"

	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

// RiskAlert notifies HR that an analysis ended with an elevated risk. It
// carries no answer text.
type RiskAlert struct {
	QuestionSetID QuestionSetID
	HRName        string
	EmployeeName  string
	OverallRisk   types.RiskLevel
	HighCount     int
	MediumCount   int
	LowCount      int
	Explanation   string
	AnalyzedAt    time.Time
}

// NewRiskAlert builds an alert from a finished classification
func NewRiskAlert(set *QuestionSet, hr, employee *UserProfile, c *Classification, at time.Time) *RiskAlert {
	counts := c.RiskCounts()
	alert := &RiskAlert{
		QuestionSetID: set.ID,
		OverallRisk:   c.OverallRisk,
		HighCount:     counts[types.RiskLevelHigh],
		MediumCount:   counts[types.RiskLevelMedium],
		LowCount:      counts[types.RiskLevelLow],
		Explanation:   c.Explanation,
		AnalyzedAt:    at,
	}
	if hr != nil {
		alert.HRName = hr.Name
	}
	if employee != nil {
		alert.EmployeeName = employee.Name
	}
	return alert
}
