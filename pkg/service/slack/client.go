package slack

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/domain/types"
	"github.com/slack-go/slack"
)

// maxSectionTextBytes keeps section text under the Block Kit limit of 3000
const maxSectionTextBytes = 2900

// client implements Service interface
type client struct {
	api       *slack.Client
	channelID string
	baseURL   string

	apiOptions []slack.Option
}

// Option is a functional option for client configuration
type Option func(*client)

// WithAPIURL overrides the Slack API endpoint
func WithAPIURL(url string) Option {
	return func(c *client) {
		c.apiOptions = append(c.apiOptions, slack.OptionAPIURL(url))
	}
}

// WithBaseURL sets the web UI base URL used to link alerts to a question set
func WithBaseURL(url string) Option {
	return func(c *client) {
		c.baseURL = url
	}
}

// New creates a new Slack service with the provided bot token and alert channel
func New(token, channelID string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.Wrap(model.ErrConfiguration, "Slack bot token is required")
	}
	if channelID == "" {
		return nil, goerr.Wrap(model.ErrConfiguration, "Slack alert channel is required")
	}

	c := &client{channelID: channelID}
	for _, opt := range opts {
		opt(c)
	}
	c.api = slack.New(token, c.apiOptions...)

	return c, nil
}

// PostRiskAlert posts a Block Kit message describing the alert
func (c *client) PostRiskAlert(ctx context.Context, alert *model.RiskAlert) error {
	blocks, fallback := c.buildAlertBlocks(alert)

	_, _, err := c.api.PostMessageContext(ctx, c.channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(fallback, false),
	)
	if err != nil {
		return goerr.Wrap(model.ErrUpstreamService, "failed to post risk alert",
			goerr.V("channel_id", c.channelID),
			goerr.V(model.QuestionSetIDKey, alert.QuestionSetID),
			goerr.V("error", err.Error()))
	}

	return nil
}

func (c *client) buildAlertBlocks(alert *model.RiskAlert) ([]slack.Block, string) {
	fallback := fmt.Sprintf("%s risk assessment for %s", riskLabel(alert.OverallRisk), displayName(alert.EmployeeName))

	header := slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, riskEmoji(alert.OverallRisk)+" "+fallback, true, false),
	)

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, "*Employee*\n"+displayName(alert.EmployeeName), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Assigned by*\n"+displayName(alert.HRName), false, false),
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*Answers*\n%d high / %d medium / %d low", alert.HighCount, alert.MediumCount, alert.LowCount), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Analyzed at*\n"+alert.AnalyzedAt.UTC().Format("2006-01-02 15:04 MST"), false, false),
	}
	blocks := []slack.Block{
		header,
		slack.NewSectionBlock(nil, fields, nil),
	}

	if alert.Explanation != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, truncateToMaxBytes(alert.Explanation, maxSectionTextBytes), false, false),
			nil, nil,
		))
	}

	contextText := "Question set `" + alert.QuestionSetID.String() + "`"
	if c.baseURL != "" {
		contextText = fmt.Sprintf("<%s/question-sets/%s|Open question set>", c.baseURL, alert.QuestionSetID)
	}
	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, contextText, false, false),
	))

	return blocks, fallback
}

func riskLabel(level types.RiskLevel) string {
	switch level {
	case types.RiskLevelHigh:
		return "High"
	case types.RiskLevelMedium:
		return "Medium"
	case types.RiskLevelLow:
		return "Low"
	default:
		return "Unknown"
	}
}

func riskEmoji(level types.RiskLevel) string {
	switch level {
	case types.RiskLevelHigh:
		return ":rotating_light:"
	case types.RiskLevelMedium:
		return ":warning:"
	default:
		return ":information_source:"
	}
}

func displayName(name string) string {
	if name == "" {
		return "(unknown)"
	}
	return name
}

// truncateToMaxBytes cuts s to at most maxBytes without splitting a UTF-8
// sequence, appending an ellipsis when truncated.
func truncateToMaxBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	const ellipsis = "…"
	limit := maxBytes - len(ellipsis)
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + ellipsis
}
