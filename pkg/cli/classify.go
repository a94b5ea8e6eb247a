package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/cli/config"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

func cmdClassify() *cli.Command {
	var llmCfg config.LLM
	var classifierCfg config.Classifier
	var question string

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "question",
			Aliases:     []string{"q"},
			Usage:       "Question text sent along with every answer",
			Value:       "How are you feeling lately?",
			Destination: &question,
		},
	}
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, classifierCfg.Flags()...)

	return &cli.Command{
		Name:      "classify",
		Aliases:   []string{"c"},
		Usage:     "Classify answers given as arguments and print the risk levels",
		ArgsUsage: "ANSWER [ANSWER...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			answers := c.Args().Slice()
			if len(answers) == 0 {
				return goerr.Wrap(model.ErrValidation, "at least one answer is required")
			}

			llmClient, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize LLM client")
			}
			classifier, err := classifierCfg.Configure(llmClient)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize risk classifier")
			}

			items := make([]model.ClassificationItem, len(answers))
			for i, answer := range answers {
				items[i] = model.ClassificationItem{
					QuestionID:   model.QuestionID("answer-" + strconv.Itoa(i+1)),
					QuestionText: question,
					AnswerText:   answer,
				}
			}

			result, err := classifier.Classify(ctx, items)
			if err != nil {
				return goerr.Wrap(err, "failed to classify answers", goerr.V("classifier", classifier.Name()))
			}

			printClassification(os.Stdout, items, result)
			return nil
		},
	}
}

func riskColor(level types.RiskLevel) *color.Color {
	switch level {
	case types.RiskLevelHigh:
		return color.New(color.FgRed, color.Bold)
	case types.RiskLevelMedium:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgGreen)
	}
}

func printClassification(w io.Writer, items []model.ClassificationItem, c *model.Classification) {
	answers := make(map[model.QuestionID]string, len(items))
	for _, item := range items {
		answers[item.QuestionID] = item.AnswerText
	}

	dim := color.New(color.Faint).SprintFunc()
	for _, r := range c.Results {
		label := riskColor(r.RiskLevel).Sprintf("%-6s", r.RiskLevel)
		fmt.Fprintf(w, "%s %s %s\n", label, dim(fmt.Sprintf("%.2f", r.Probability)), answers[r.QuestionID])
		if r.Reasoning != "" {
			fmt.Fprintf(w, "       %s\n", dim(r.Reasoning))
		}
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "\n%s %s\n", bold("overall:"), riskColor(c.OverallRisk).Sprint(c.OverallRisk))
	if c.Explanation != "" {
		fmt.Fprintf(w, "%s\n", dim(c.Explanation))
	}
}
