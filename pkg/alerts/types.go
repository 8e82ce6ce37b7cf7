package alerts

import (
	"context"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
)

// AlertLevel indicates the severity of a quota alert.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"  // Usage crossed the configured threshold
	AlertCritical AlertLevel = "critical" // Quota nearly used
	AlertExceeded AlertLevel = "exceeded" // No quota remaining
)

// Alert represents a data quota notification for one service.
type Alert struct {
	Level         AlertLevel      `json:"level"`
	ServiceID     model.ServiceID `json:"service_id"`
	Plan          string          `json:"plan"`
	UsedMB        float64         `json:"used_mb"`
	RemainingMB   float64         `json:"remaining_mb"`
	PctUsed       float64         `json:"pct_used"`
	ThresholdPct  float64         `json:"threshold_pct"`
	DaysRemaining int             `json:"days_remaining"`
	Message       string          `json:"message"`
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
