package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
)

// Lexicon holds the vocabulary used by the lexical classifier
type Lexicon struct {
	HighRiskPhrases []string `toml:"high_risk_phrases"`
	NegativeWords   []string `toml:"negative_words"`
}

// DefaultLexicon returns the built-in vocabulary
func DefaultLexicon() Lexicon {
	return Lexicon{
		HighRiskPhrases: []string{
			"want to die", "kill myself", "end my life", "no reason to live",
			"better off dead", "can't go on", "give up", "tired of living",
			"hopeless", "worthless", "burden", "never get better", "trapped",
			"unbearable pain", "no future", "nothing to live for", "suicide",
			"disappear forever", "peaceful death",
		},
		NegativeWords: []string{
			"sad", "depressed", "anxious", "worried", "stressed", "overwhelmed",
			"lost", "alone", "isolated", "afraid", "fearful", "tired", "exhausted",
			"empty", "numb", "pain", "hurt", "suffer", "struggling", "difficulty",
			"problem", "trouble", "fail", "failure", "disappointed", "regret",
			"guilt", "ashamed", "worthless", "useless", "insignificant",
			"helpless", "hopeless",
		},
	}
}

// LoadLexicon reads a TOML lexicon file. Lists missing from the file fall
// back to the built-in vocabulary.
func LoadLexicon(path string) (Lexicon, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return Lexicon{}, goerr.Wrap(model.ErrConfiguration, "failed to read lexicon file",
			goerr.V("path", path), goerr.V("error", err.Error()))
	}

	var lex Lexicon
	if err := toml.Unmarshal(raw, &lex); err != nil {
		return Lexicon{}, goerr.Wrap(model.ErrConfiguration, "failed to parse lexicon file",
			goerr.V("path", path), goerr.V("error", err.Error()))
	}

	def := DefaultLexicon()
	if len(lex.HighRiskPhrases) == 0 {
		lex.HighRiskPhrases = def.HighRiskPhrases
	}
	if len(lex.NegativeWords) == 0 {
		lex.NegativeWords = def.NegativeWords
	}
	return lex, nil
}

type negativeWord struct {
	word    string
	pattern *regexp.Regexp
}

// Lexical scores answers by matching high-risk phrases and the density of
// negative words. It never calls out of process.
type Lexical struct {
	phrases []string
	words   []negativeWord

	mu   sync.Mutex
	rand *rand.Rand
}

var _ Classifier = (*Lexical)(nil)

// LexicalOption configures a Lexical classifier
type LexicalOption func(*Lexical)

// WithLexicon replaces the built-in vocabulary
func WithLexicon(lex Lexicon) LexicalOption {
	return func(l *Lexical) {
		l.setLexicon(lex)
	}
}

// WithRandom sets the source of the probability jitter
func WithRandom(r *rand.Rand) LexicalOption {
	return func(l *Lexical) {
		l.rand = r
	}
}

// NewLexical creates a lexical classifier
func NewLexical(opts ...LexicalOption) *Lexical {
	l := &Lexical{
		rand: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), // #nosec G404 -- jitter only
	}
	l.setLexicon(DefaultLexicon())
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lexical) setLexicon(lex Lexicon) {
	l.phrases = make([]string, 0, len(lex.HighRiskPhrases))
	for _, p := range lex.HighRiskPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			l.phrases = append(l.phrases, p)
		}
	}

	l.words = make([]negativeWord, 0, len(lex.NegativeWords))
	for _, w := range lex.NegativeWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			l.words = append(l.words, negativeWord{
				word:    w,
				pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`),
			})
		}
	}
}

func (l *Lexical) Name() string {
	return "lexical"
}

func (l *Lexical) Classify(ctx context.Context, items []model.ClassificationItem) (*model.Classification, error) {
	answered, err := answeredItems(items)
	if err != nil {
		return nil, err
	}

	results := make([]model.ItemResult, len(answered))
	for i, item := range answered {
		results[i] = l.score(item)
	}

	overall := Aggregate(results)
	c := &model.Classification{
		Results:     results,
		OverallRisk: overall,
	}
	counts := c.RiskCounts()
	c.Explanation = fmt.Sprintf("lexical analysis of %d answers: %d high, %d medium, %d low",
		len(results), counts[types.RiskLevelHigh], counts[types.RiskLevelMedium], counts[types.RiskLevelLow])
	return c, nil
}

func (l *Lexical) score(item model.ClassificationItem) model.ItemResult {
	text := strings.ToLower(item.AnswerText)

	for _, phrase := range l.phrases {
		if strings.Contains(text, phrase) {
			return model.ItemResult{
				QuestionID:  item.QuestionID,
				RiskLevel:   types.RiskLevelHigh,
				Probability: l.jitter(0.8, 0.2),
				Reasoning:   fmt.Sprintf("contains high-risk phrase %q", phrase),
			}
		}
	}

	matched := 0
	for _, w := range l.words {
		if w.pattern.MatchString(text) {
			matched++
		}
	}
	total := len(strings.Fields(text))
	if total < 1 {
		total = 1
	}
	density := float64(matched) / float64(total)

	result := model.ItemResult{
		QuestionID: item.QuestionID,
		Reasoning:  fmt.Sprintf("%d negative words in %d words (density %.2f)", matched, total, density),
	}
	switch {
	case density > 0.4:
		result.RiskLevel = types.RiskLevelHigh
		result.Probability = l.jitter(0.7, 0.15)
	case density > 0.25:
		result.RiskLevel = types.RiskLevelMedium
		result.Probability = l.jitter(0.4, 0.3)
	case density > 0.15:
		result.RiskLevel = types.RiskLevelMedium
		result.Probability = l.jitter(0.3, 0.2)
	default:
		result.RiskLevel = types.RiskLevelLow
		result.Probability = l.jitter(0.1, 0.2)
	}
	return result
}

// jitter returns base + r*span rounded to two decimals
func (l *Lexical) jitter(base, span float64) float64 {
	l.mu.Lock()
	r := l.rand.Float64()
	l.mu.Unlock()
	return math.Round((base+r*span)*100) / 100
}
