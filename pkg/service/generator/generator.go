// Package generator turns an HR prompt into questionnaire questions with an LLM.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/utils/jsonx"
	"github.com/secmon-lab/pulsecheck/pkg/utils/logging"
)

// Request is the input of a generation
type Request struct {
	Prompt     string
	EmployeeID model.UserProfileID
}

type Generator struct {
	llm gollem.LLMClient
}

// New creates a question generator
func New(llm gollem.LLMClient) (*Generator, error) {
	if llm == nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "LLM client is required for question generation")
	}
	return &Generator{llm: llm}, nil
}

// Generate asks the LLM for questions and returns 1 to MaxQuestionsPerSet
// non-blank questions in the order they were produced.
func (g *Generator) Generate(ctx context.Context, req Request) ([]string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, goerr.Wrap(model.ErrValidation, "prompt is required")
	}

	session, err := g.llm.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(responseSchema()),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(model.ErrUpstreamService, "failed to create LLM session",
			goerr.V("error", err.Error()))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(buildUserPrompt(prompt)))
	if err != nil {
		return nil, goerr.Wrap(model.ErrUpstreamService, "failed to generate questions",
			goerr.V("error", err.Error()))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return nil, goerr.Wrap(errors.Join(model.ErrGeneration, model.ErrParse), "empty generation response")
	}

	text := strings.Join(resp.Texts, "")
	questions := ParseQuestions(text)
	if len(questions) == 0 {
		return nil, goerr.Wrap(errors.Join(model.ErrGeneration, model.ErrParse), "no questions in generation response",
			goerr.V("response", text))
	}

	logging.From(ctx).Debug("questions generated",
		"employee_id", req.EmployeeID, "count", len(questions))
	return questions, nil
}

var numbering = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// ParseQuestions extracts questions from LLM output. A JSON array of strings
// is preferred. Otherwise lines ending with '?' are taken with list
// numbering removed.
func ParseQuestions(text string) []string {
	var candidates []string

	if raw, ok := jsonx.FirstArray(text); ok {
		var arr []string
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			candidates = arr
		}
	}

	if candidates == nil {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasSuffix(line, "?") {
				continue
			}
			candidates = append(candidates, numbering.ReplaceAllString(line, ""))
		}
	}

	questions := make([]string, 0, model.MaxQuestionsPerSet)
	for _, q := range candidates {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		questions = append(questions, q)
		if len(questions) == model.MaxQuestionsPerSet {
			break
		}
	}
	return questions
}

const systemPrompt = `You help HR professionals prepare wellbeing check-ins for employees.
Questions must be professional, empathetic and indirect. Never ask about self-harm directly.
Respond with a JSON array of strings and nothing else.`

func buildUserPrompt(prompt string) string {
	return fmt.Sprintf(`Based on this context about an employee: "%s", generate %d psychologically-informed questions that can help assess potential suicidal tendencies. The questions should be professional, empathetic, and indirect. Focus on emotional states, work-life balance, and mental well-being. Format the response as a JSON array of strings.`,
		prompt, model.MaxQuestionsPerSet)
}

func responseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "Questions",
		Description: "Wellbeing check-in questions",
		Type:        gollem.TypeArray,
		Items: &gollem.Parameter{
			Type:        gollem.TypeString,
			Description: "One question",
		},
	}
}
