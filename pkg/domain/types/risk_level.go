package types

import (
	"fmt"
	"strings"
)

// RiskLevel is the classification label of an answer or a question set.
// The empty value means the level has not been determined yet.
type RiskLevel string

const (
	RiskLevelUnset  RiskLevel = ""
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// AllRiskLevels returns all determined risk levels in ascending severity
func AllRiskLevels() []RiskLevel {
	return []RiskLevel{
		RiskLevelLow,
		RiskLevelMedium,
		RiskLevelHigh,
	}
}

// IsValid checks if the risk level is a determined level
func (l RiskLevel) IsValid() bool {
	switch l {
	case RiskLevelLow,
		RiskLevelMedium,
		RiskLevelHigh:
		return true
	default:
		return false
	}
}

// IsSet returns true when a level has been assigned
func (l RiskLevel) IsSet() bool {
	return l != RiskLevelUnset
}

func (l RiskLevel) String() string {
	return string(l)
}

// ParseRiskLevel parses a string into a RiskLevel. Matching is case-insensitive
// because LLM output is not reliable about casing.
func ParseRiskLevel(s string) (RiskLevel, error) {
	level := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if !level.IsValid() {
		return "", fmt.Errorf("invalid risk level: %s", s)
	}
	return level, nil
}
