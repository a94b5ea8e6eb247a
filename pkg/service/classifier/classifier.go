// Package classifier assigns risk levels to answered questions.
//
// Two strategies are provided. Lexical scores answers against a keyword
// lexicon without any network call. Delegate hands the whole batch to an
// LLM and validates its structured reply.
package classifier

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

// Classifier labels each item and the batch as a whole
type Classifier interface {
	Classify(ctx context.Context, items []model.ClassificationItem) (*model.Classification, error)
	Name() string
}

// Aggregate derives the overall risk of a batch: high when any item is high,
// medium when medium items outnumber low items, low otherwise.
func Aggregate(results []model.ItemResult) types.RiskLevel {
	var medium, low int
	for _, r := range results {
		switch r.RiskLevel {
		case types.RiskLevelHigh:
			return types.RiskLevelHigh
		case types.RiskLevelMedium:
			medium++
		case types.RiskLevelLow:
			low++
		}
	}
	if medium > low {
		return types.RiskLevelMedium
	}
	return types.RiskLevelLow
}

// answeredItems drops items whose answer is blank. Having nothing left is a
// validation error.
func answeredItems(items []model.ClassificationItem) ([]model.ClassificationItem, error) {
	answered := make([]model.ClassificationItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.AnswerText) == "" {
			continue
		}
		answered = append(answered, item)
	}
	if len(answered) == 0 {
		return nil, goerr.Wrap(model.ErrValidation, "no answered questions to classify",
			goerr.V("items", len(items)))
	}
	return answered, nil
}
