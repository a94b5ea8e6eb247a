package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/service/classifier"
	"github.com/urfave/cli/v3"
)

const (
	StrategyLexical = "lexical"
	StrategyLLM     = "llm"
)

// Classifier selects the risk classification strategy
type Classifier struct {
	strategy    string
	lexiconPath string
}

func (x *Classifier) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "classifier",
			Usage:       "Risk classifier strategy (lexical or llm)",
			Category:    "Classifier",
			Value:       StrategyLexical,
			Sources:     cli.EnvVars("PULSECHECK_CLASSIFIER"),
			Destination: &x.strategy,
		},
		&cli.StringFlag{
			Name:        "lexicon",
			Usage:       "TOML file with high risk phrases and negative words for the lexical classifier",
			Category:    "Classifier",
			Sources:     cli.EnvVars("PULSECHECK_LEXICON"),
			Destination: &x.lexiconPath,
		},
	}
}

func (x Classifier) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("strategy", x.strategy),
		slog.String("lexicon", x.lexiconPath),
	)
}

// Configure builds the classifier. The llm strategy requires a client.
func (x *Classifier) Configure(llm gollem.LLMClient) (classifier.Classifier, error) {
	switch x.strategy {
	case "", StrategyLexical:
		var opts []classifier.LexicalOption
		if x.lexiconPath != "" {
			lex, err := classifier.LoadLexicon(x.lexiconPath)
			if err != nil {
				return nil, err
			}
			opts = append(opts, classifier.WithLexicon(lex))
		}
		return classifier.NewLexical(opts...), nil

	case StrategyLLM:
		if llm == nil {
			return nil, goerr.Wrap(model.ErrConfiguration, "llm classifier requires --llm-provider")
		}
		c, err := classifier.NewDelegate(llm)
		if err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, goerr.Wrap(model.ErrConfiguration, "invalid classifier strategy", goerr.V("strategy", x.strategy))
	}
}
