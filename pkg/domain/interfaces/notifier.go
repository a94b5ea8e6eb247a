package interfaces

import (
	"context"

	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
)

// Notifier delivers risk alerts to an out-of-band channel
type Notifier interface {
	PostRiskAlert(ctx context.Context, alert *model.RiskAlert) error
}
