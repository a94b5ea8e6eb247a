package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/secmon-lab/pulsecheck/pkg/utils/jsonx"
	"github.com/secmon-lab/pulsecheck/pkg/utils/logging"
)

// Delegate sends the batch to an LLM and validates the structured reply.
// The overall risk is always recomputed from the item results.
type Delegate struct {
	llm gollem.LLMClient
}

var _ Classifier = (*Delegate)(nil)

// NewDelegate creates an LLM-backed classifier
func NewDelegate(llm gollem.LLMClient) (*Delegate, error) {
	if llm == nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "LLM client is required for the llm classifier")
	}
	return &Delegate{llm: llm}, nil
}

func (d *Delegate) Name() string {
	return "llm"
}

type delegateItem struct {
	QuestionID  *string  `json:"question_id"`
	RiskLevel   *string  `json:"risk_level"`
	Probability *float64 `json:"probability"`
	Reasoning   string   `json:"reasoning"`
}

type delegateResponse struct {
	Responses   *[]delegateItem `json:"responses"`
	OverallRisk *string         `json:"overall_risk"`
	Explanation string          `json:"explanation"`
}

func (d *Delegate) Classify(ctx context.Context, items []model.ClassificationItem) (*model.Classification, error) {
	answered, err := answeredItems(items)
	if err != nil {
		return nil, err
	}

	session, err := d.llm.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(delegateSchema()),
		gollem.WithSessionSystemPrompt(delegateSystemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(model.ErrUpstreamService, "failed to create LLM session",
			goerr.V("error", err.Error()))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(buildDelegatePrompt(answered)))
	if err != nil {
		return nil, goerr.Wrap(model.ErrUpstreamService, "failed to classify answers",
			goerr.V("error", err.Error()), goerr.V("items", len(answered)))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return nil, goerr.Wrap(model.ErrParse, "empty classification response")
	}

	c, err := parseDelegateResponse(strings.Join(resp.Texts, ""), answered)
	if err != nil {
		return nil, err
	}

	if c.OverallRisk != Aggregate(c.Results) {
		derived := Aggregate(c.Results)
		logging.From(ctx).Warn("LLM overall risk disagrees with item results, using derived value",
			"reported", c.OverallRisk, "derived", derived)
		c.OverallRisk = derived
	}
	return c, nil
}

// parseDelegateResponse checks that every submitted item has exactly one
// valid result and nothing else.
func parseDelegateResponse(text string, items []model.ClassificationItem) (*model.Classification, error) {
	raw, ok := jsonx.FirstObject(text)
	if !ok {
		return nil, goerr.Wrap(model.ErrParse, "no JSON object in classification response",
			goerr.V("response", text))
	}

	var body delegateResponse
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, goerr.Wrap(model.ErrParse, "failed to decode classification response",
			goerr.V("response", raw), goerr.V("error", err.Error()))
	}
	if body.Responses == nil {
		return nil, goerr.Wrap(model.ErrParse, "classification response has no responses",
			goerr.V("response", raw))
	}
	if body.OverallRisk == nil {
		return nil, goerr.Wrap(model.ErrParse, "classification response has no overall_risk",
			goerr.V("response", raw))
	}
	overall, err := types.ParseRiskLevel(*body.OverallRisk)
	if err != nil {
		return nil, goerr.Wrap(model.ErrParse, "invalid overall_risk",
			goerr.V("overall_risk", *body.OverallRisk))
	}

	expected := make(map[model.QuestionID]struct{}, len(items))
	for _, item := range items {
		expected[item.QuestionID] = struct{}{}
	}

	byID := make(map[model.QuestionID]model.ItemResult, len(items))
	for i, r := range *body.Responses {
		if r.QuestionID == nil || r.RiskLevel == nil || r.Probability == nil {
			return nil, goerr.Wrap(model.ErrParse, "classification item is missing fields",
				goerr.V("index", i))
		}
		qid := model.QuestionID(*r.QuestionID)
		if _, ok := expected[qid]; !ok {
			return nil, goerr.Wrap(model.ErrParse, "classification item refers to an unknown question",
				goerr.V(model.QuestionIDKey, qid))
		}
		if _, dup := byID[qid]; dup {
			return nil, goerr.Wrap(model.ErrParse, "duplicate classification item",
				goerr.V(model.QuestionIDKey, qid))
		}
		level, err := types.ParseRiskLevel(*r.RiskLevel)
		if err != nil {
			return nil, goerr.Wrap(model.ErrParse, "invalid risk_level",
				goerr.V(model.QuestionIDKey, qid), goerr.V("risk_level", *r.RiskLevel))
		}
		if *r.Probability < 0 || *r.Probability > 1 {
			return nil, goerr.Wrap(model.ErrParse, "probability out of range",
				goerr.V(model.QuestionIDKey, qid), goerr.V("probability", *r.Probability))
		}
		byID[qid] = model.ItemResult{
			QuestionID:  qid,
			RiskLevel:   level,
			Probability: *r.Probability,
			Reasoning:   r.Reasoning,
		}
	}

	results := make([]model.ItemResult, 0, len(items))
	for _, item := range items {
		r, ok := byID[item.QuestionID]
		if !ok {
			return nil, goerr.Wrap(model.ErrParse, "classification response is missing a question",
				goerr.V(model.QuestionIDKey, item.QuestionID))
		}
		results = append(results, r)
	}

	return &model.Classification{
		Results:     results,
		OverallRisk: overall,
		Explanation: body.Explanation,
	}, nil
}

const delegateSystemPrompt = `You are an occupational wellbeing analyst reviewing an employee's answers to a check-in questionnaire.
For every answer, assess the risk of serious emotional distress or self-harm.

Rules:
- Return exactly one entry in "responses" for each question_id you are given, and no others.
- risk_level must be one of "low", "medium" or "high".
- probability is your confidence that the answer indicates risk, between 0 and 1.
- reasoning is one short sentence.
- overall_risk is "high" if any answer is high, "medium" if medium answers outnumber low answers, otherwise "low".
- explanation summarizes the overall assessment in two sentences at most.`

func buildDelegatePrompt(items []model.ClassificationItem) string {
	var b strings.Builder
	b.WriteString("Classify the following answers.\n\n")
	for _, item := range items {
		fmt.Fprintf(&b, "question_id: %s\nQuestion: %s\nAnswer: %s\n\n",
			item.QuestionID, item.QuestionText, item.AnswerText)
	}
	return b.String()
}

func delegateSchema() *gollem.Parameter {
	levels := []string{
		types.RiskLevelLow.String(),
		types.RiskLevelMedium.String(),
		types.RiskLevelHigh.String(),
	}

	return &gollem.Parameter{
		Title:       "RiskClassification",
		Description: "Risk classification of questionnaire answers",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"responses": {
				Type:        gollem.TypeArray,
				Description: "One entry per classified answer",
				Required:    true,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"question_id": {
							Type:        gollem.TypeString,
							Description: "The question_id of the classified answer",
							Required:    true,
						},
						"risk_level": {
							Type:        gollem.TypeString,
							Description: "Risk level of the answer",
							Enum:        levels,
							Required:    true,
						},
						"probability": {
							Type:        gollem.TypeNumber,
							Description: "Confidence between 0 and 1",
							Required:    true,
						},
						"reasoning": {
							Type:        gollem.TypeString,
							Description: "Short rationale",
						},
					},
				},
			},
			"overall_risk": {
				Type:        gollem.TypeString,
				Description: "Aggregate risk level of all answers",
				Enum:        levels,
				Required:    true,
			},
			"explanation": {
				Type:        gollem.TypeString,
				Description: "Short summary of the assessment",
			},
		},
	}
}
