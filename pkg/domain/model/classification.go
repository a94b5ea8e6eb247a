package model

import "github.com/secmon-lab/pulsecheck/pkg/domain/types"

// ClassificationItem is one answered question submitted to a classifier
type ClassificationItem struct {
	QuestionID   QuestionID
	QuestionText string
	AnswerText   string `masq:"secret"`
}

// ItemResult is the classifier verdict for one item
type ItemResult struct {
	QuestionID  QuestionID
	RiskLevel   types.RiskLevel
	Probability float64
	Reasoning   string
}

// Classification is the full classifier output for a batch of items
type Classification struct {
	Results     []ItemResult
	OverallRisk types.RiskLevel
	Explanation string
}

// RiskCounts returns the number of results per risk level
func (c *Classification) RiskCounts() map[types.RiskLevel]int {
	counts := make(map[types.RiskLevel]int, len(types.AllRiskLevels()))
	for _, level := range types.AllRiskLevels() {
		counts[level] = 0
	}
	for _, r := range c.Results {
		counts[r.RiskLevel]++
	}
	return counts
}

// ItemsFromQuestions converts answered questions into classifier items in
// order. Unanswered questions are skipped.
func ItemsFromQuestions(questions []*Question) []ClassificationItem {
	items := make([]ClassificationItem, 0, len(questions))
	for _, q := range questions {
		if !q.HasAnswer() {
			continue
		}
		items = append(items, ClassificationItem{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			AnswerText:   q.AnswerText,
		})
	}
	return items
}
