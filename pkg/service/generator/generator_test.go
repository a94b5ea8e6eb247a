package generator_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/service/generator"
)

type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.generateContentFn(ctx, input...)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type mockLLMClient struct {
	calls int
	reply func(prompt string) (*gollem.Response, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	c.calls++
	return &mockLLMSession{
		generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
			var prompt string
			if len(input) > 0 {
				if text, ok := input[0].(gollem.Text); ok {
					prompt = string(text)
				}
			}
			return c.reply(prompt)
		},
	}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func textReply(text string) func(string) (*gollem.Response, error) {
	return func(string) (*gollem.Response, error) {
		return &gollem.Response{Texts: []string{text}}, nil
	}
}

func TestNew_RequiresLLMClient(t *testing.T) {
	_, err := generator.New(nil)
	gt.Error(t, err).Is(model.ErrConfiguration)
}

func TestGenerate(t *testing.T) {
	t.Run("returns questions from JSON array", func(t *testing.T) {
		var seen string
		llm := &mockLLMClient{reply: func(prompt string) (*gollem.Response, error) {
			seen = prompt
			return &gollem.Response{Texts: []string{`["How has your week been?", "What helps you recharge?"]`}}, nil
		}}
		g, err := generator.New(llm)
		gt.NoError(t, err).Required()

		got, err := g.Generate(context.Background(), generator.Request{Prompt: "recently moved teams", EmployeeID: "emp-1"})
		gt.NoError(t, err).Required()
		gt.Value(t, got).Equal([]string{"How has your week been?", "What helps you recharge?"})
		gt.String(t, seen).Contains(`"recently moved teams"`)
	})

	t.Run("empty prompt fails before any call", func(t *testing.T) {
		llm := &mockLLMClient{reply: textReply(`["unused?"]`)}
		g, err := generator.New(llm)
		gt.NoError(t, err).Required()

		_, err = g.Generate(context.Background(), generator.Request{Prompt: "   "})
		gt.Error(t, err).Is(model.ErrValidation)
		gt.Value(t, llm.calls).Equal(0)
	})

	t.Run("no questions is a generation error", func(t *testing.T) {
		g, err := generator.New(&mockLLMClient{reply: textReply("Sorry, I can't do that.")})
		gt.NoError(t, err).Required()

		_, err = g.Generate(context.Background(), generator.Request{Prompt: "context"})
		gt.Error(t, err).Is(model.ErrGeneration)
		gt.Error(t, err).Is(model.ErrParse)
	})

	t.Run("upstream failure", func(t *testing.T) {
		g, err := generator.New(&mockLLMClient{reply: func(string) (*gollem.Response, error) {
			return nil, errors.New("connection reset")
		}})
		gt.NoError(t, err).Required()

		_, err = g.Generate(context.Background(), generator.Request{Prompt: "context"})
		gt.Error(t, err).Is(model.ErrUpstreamService)
	})
}

func TestParseQuestions(t *testing.T) {
	t.Run("array embedded in prose", func(t *testing.T) {
		got := generator.ParseQuestions("Sure!\n```json\n[\"A?\", \"  \", \"B?\"]\n```")
		gt.Value(t, got).Equal([]string{"A?", "B?"})
	})

	t.Run("numbered lines fallback", func(t *testing.T) {
		got := generator.ParseQuestions("Here are some questions:\n1. How do you feel?\n2) Is work busy?\nThat is all.\n- Anything else?")
		gt.Value(t, got).Equal([]string{"How do you feel?", "Is work busy?", "Anything else?"})
	})

	t.Run("truncated to max", func(t *testing.T) {
		items := make([]string, 15)
		for i := range items {
			items[i] = fmt.Sprintf("%q", fmt.Sprintf("Question %d?", i))
		}
		got := generator.ParseQuestions("[" + strings.Join(items, ",") + "]")
		gt.Array(t, got).Length(model.MaxQuestionsPerSet)
		gt.Value(t, got[0]).Equal("Question 0?")
	})

	t.Run("nothing usable", func(t *testing.T) {
		gt.Array(t, generator.ParseQuestions("no questions here")).Length(0)
	})
}

func TestBuildUserPrompt(t *testing.T) {
	p := generator.BuildUserPrompt("new manager")
	gt.String(t, p).Contains("new manager")
	gt.String(t, p).Contains("JSON array of strings")
}
