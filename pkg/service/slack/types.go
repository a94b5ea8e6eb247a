package slack

import (
	"github.com/secmon-lab/pulsecheck/pkg/domain/interfaces"
)

// Service posts risk alerts to a Slack channel
type Service interface {
	interfaces.Notifier
}
