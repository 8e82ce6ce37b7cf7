package cli

import (
	"fmt"

	"github.com/ogulcanaydogan/aussiebb-go/internal/output"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/alerts"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/tracker"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [service-id...]",
	Short: "Check data quotas and send alerts",
	Long: `Check each service's usage against its data quota. Alerts are sent to the
configured notifiers when usage crosses quota.alert_threshold_pct, and again
at 95% and when the quota is used up. Unmetered plans are skipped.

Exits non-zero when any service has exceeded its quota.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Float64("threshold", 0, "Warning threshold percentage (default from config)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := format()
	if err != nil {
		return err
	}

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	if threshold <= 0 {
		threshold = cfg.Quota.AlertThresholdPct
	}

	logger := newLogger(cfg)
	acct, err := initAccount(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	mon := tracker.NewQuotaMonitor(acct, threshold, initNotifiers(cfg), logger)

	var raised []alerts.Alert
	if len(args) == 0 {
		if raised, err = mon.CheckAll(cmd.Context()); err != nil {
			return err
		}
	} else {
		for _, id := range args {
			alert, err := mon.Check(cmd.Context(), model.ServiceID(id))
			if err != nil {
				return err
			}
			if alert != nil {
				raised = append(raised, *alert)
			}
		}
	}

	if raised == nil {
		raised = []alerts.Alert{}
	}
	exceeded := 0
	table := output.Table{Header: []string{"SERVICE", "PLAN", "LEVEL", "USED", "REMAINING", "PCT", "DAYS LEFT"}}
	for _, a := range raised {
		if a.Level == alerts.AlertExceeded {
			exceeded++
		}
		table.Rows = append(table.Rows, []string{
			a.ServiceID.String(),
			a.Plan,
			output.Level(string(a.Level)),
			output.MB(a.UsedMB),
			output.MB(a.RemainingMB),
			fmt.Sprintf("%.1f%%", a.PctUsed),
			fmt.Sprintf("%d", a.DaysRemaining),
		})
	}

	if len(raised) == 0 && f.Resolve(cmd.OutOrStdout()) == output.FormatTable {
		fmt.Fprintln(cmd.OutOrStdout(), "All services within quota.")
	} else if err := output.Write(cmd.OutOrStdout(), f, raised, table); err != nil {
		return err
	}

	if exceeded > 0 {
		return fmt.Errorf("%d service(s) exceeded their data quota", exceeded)
	}
	return nil
}
