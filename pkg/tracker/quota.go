package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/account"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/alerts"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
)

// CriticalPct is the share of the quota at which alerts become critical.
const CriticalPct = 95.0

// QuotaMonitor checks service usage against the data quota and dispatches alerts.
type QuotaMonitor struct {
	account      *account.Account
	thresholdPct float64
	notifiers    []alerts.Notifier
	logger       *slog.Logger
}

// NewQuotaMonitor creates a quota monitor that warns at thresholdPct.
func NewQuotaMonitor(acct *account.Account, thresholdPct float64, notifiers []alerts.Notifier, logger *slog.Logger) *QuotaMonitor {
	return &QuotaMonitor{
		account:      acct,
		thresholdPct: thresholdPct,
		notifiers:    notifiers,
		logger:       logger,
	}
}

// Check evaluates one service and notifies when a threshold is crossed. It
// returns nil when no alert is due.
func (m *QuotaMonitor) Check(ctx context.Context, serviceID model.ServiceID) (*alerts.Alert, error) {
	svc, err := m.account.Service(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	ov, err := svc.Overview(ctx)
	if err != nil {
		return nil, err
	}

	alert := Evaluate(svc.Info(), ov, m.thresholdPct)
	if alert == nil {
		return nil, nil
	}

	m.logger.Warn("quota threshold crossed",
		"service_id", serviceID,
		"level", alert.Level,
		"pct", alert.PctUsed,
		"used_mb", alert.UsedMB,
		"remaining_mb", alert.RemainingMB,
	)

	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, *alert); err != nil {
			m.logger.Error("send alert failed",
				"notifier", notifier.Name(),
				"service_id", serviceID,
				"error", err,
			)
		}
	}
	return alert, nil
}

// CheckAll checks every service on the account and returns the alerts raised.
func (m *QuotaMonitor) CheckAll(ctx context.Context) ([]alerts.Alert, error) {
	services, err := m.account.Services(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	var raised []alerts.Alert
	for _, svc := range services {
		alert, err := m.Check(ctx, svc.ID())
		if err != nil {
			return raised, fmt.Errorf("check service %s: %w", svc.ID(), err)
		}
		if alert != nil {
			raised = append(raised, *alert)
		}
	}
	return raised, nil
}

// Evaluate returns the alert due for an overview, or nil. Unmetered plans
// never alert.
func Evaluate(svc model.Service, ov *model.UsageOverview, thresholdPct float64) *alerts.Alert {
	if ov.Unmetered() {
		return nil
	}

	remaining := *ov.RemainingMB
	quota := ov.UsedMB + remaining
	pct := 100.0
	if quota > 0 {
		pct = (ov.UsedMB / quota) * 100
	}

	var level alerts.AlertLevel
	switch {
	case remaining <= 0:
		level = alerts.AlertExceeded
	case pct >= CriticalPct:
		level = alerts.AlertCritical
	case pct >= thresholdPct:
		level = alerts.AlertWarning
	default:
		return nil
	}

	return &alerts.Alert{
		Level:         level,
		ServiceID:     svc.ID,
		Plan:          svc.Plan,
		UsedMB:        ov.UsedMB,
		RemainingMB:   remaining,
		PctUsed:       pct,
		ThresholdPct:  thresholdPct,
		DaysRemaining: ov.DaysRemaining,
		Message: fmt.Sprintf("Service %s at %.1f%% of quota (%.0f MB used, %.0f MB left, %d days remaining)",
			svc.ID, pct, ov.UsedMB, remaining, ov.DaysRemaining),
	}
}
