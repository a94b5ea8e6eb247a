package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
	"github.com/secmon-lab/pulsecheck/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds the settings of high risk alert notifications
type Slack struct {
	botToken  string
	channelID string
	apiURL    string
	baseURL   string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token used to post risk alerts",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("PULSECHECK_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Channel ID receiving risk alerts",
			Category:    "Slack",
			Destination: &x.channelID,
			Sources:     cli.EnvVars("PULSECHECK_SLACK_CHANNEL_ID"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Override of the Slack API endpoint",
			Category:    "Slack",
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("PULSECHECK_SLACK_API_URL"),
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Base URL of the application, linked from alerts (e.g., https://your-domain.com)",
			Destination: &x.baseURL,
			Sources:     cli.EnvVars("PULSECHECK_BASE_URL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel-id", x.channelID),
	)
}

// IsConfigured checks if alert posting is enabled
func (x *Slack) IsConfigured() bool {
	return x.botToken != "" || x.channelID != ""
}

// Configure returns the alert notifier or nil when Slack is not configured
func (x *Slack) Configure() (interfaces.Notifier, error) {
	if !x.IsConfigured() {
		return nil, nil
	}

	var opts []slack.Option
	if x.apiURL != "" {
		opts = append(opts, slack.WithAPIURL(x.apiURL))
	}
	if x.baseURL != "" {
		opts = append(opts, slack.WithBaseURL(x.baseURL))
	}

	svc, err := slack.New(x.botToken, x.channelID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack notifier")
	}
	return svc, nil
}
