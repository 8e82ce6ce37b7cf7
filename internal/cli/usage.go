package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/internal/output"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show data usage for a service",
}

var usageOverviewCmd = &cobra.Command{
	Use:   "overview <service-id>",
	Short: "Show usage for the current billing period",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsageOverview,
}

var usageHistoryCmd = &cobra.Command{
	Use:   "history <service-id> <YYYY|YYYY-MM|YYYY-MM-DD>",
	Short: "Show daily usage for a year, month or day",
	Long: `Show daily usage for a year, month or single day. Days are fetched from the
billing period they belong to, so a day before the service's rollover day is
read from the previous month's period.`,
	Args: cobra.ExactArgs(2),
	RunE: runUsageHistory,
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.AddCommand(usageOverviewCmd)
	usageCmd.AddCommand(usageHistoryCmd)

	usageOverviewCmd.Flags().Bool("record", false, "Archive the overview as a snapshot")
}

func runUsageOverview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := format()
	if err != nil {
		return err
	}
	record, _ := cmd.Flags().GetBool("record")
	logger := newLogger(cfg)
	id := model.ServiceID(args[0])

	var ov *model.UsageOverview
	if record {
		t, store, err := initTracker(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		snap, err := t.SnapshotOverview(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("record overview: %w", err)
		}
		ov = &snap.Overview
	} else {
		acct, err := initAccount(cmd.Context(), cfg, logger, nil)
		if err != nil {
			return err
		}
		svc, err := acct.Service(cmd.Context(), id)
		if err != nil {
			return err
		}
		if ov, err = svc.Overview(cmd.Context()); err != nil {
			return fmt.Errorf("get overview: %w", err)
		}
	}

	remaining := "unlimited"
	if !ov.Unmetered() {
		remaining = output.MB(*ov.RemainingMB)
	}
	table := output.Table{
		Header: []string{"USED", "DOWNLOADED", "UPLOADED", "REMAINING", "DAYS LEFT", "UPDATED"},
		Rows: [][]string{{
			output.MB(ov.UsedMB),
			output.MB(ov.DownloadedMB),
			output.MB(ov.UploadedMB),
			remaining,
			fmt.Sprintf("%d/%d", ov.DaysRemaining, ov.DaysTotal),
			ov.LastUpdated,
		}},
	}
	return output.Write(cmd.OutOrStdout(), f, ov, table)
}

func runUsageHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := format()
	if err != nil {
		return err
	}

	acct, err := initAccount(cmd.Context(), cfg, newLogger(cfg), nil)
	if err != nil {
		return err
	}
	svc, err := acct.Service(cmd.Context(), model.ServiceID(args[0]))
	if err != nil {
		return err
	}

	days, err := svc.Usage(cmd.Context(), args[1])
	if err != nil {
		return err
	}
	return writeDays(cmd, f, days)
}

// writeDays renders usage days with a totals footer.
func writeDays(cmd *cobra.Command, f output.Format, days []model.UsageDay) error {
	if days == nil {
		days = []model.UsageDay{}
	}

	var down, up float64
	table := output.Table{Header: []string{"DATE", "DOWNLOAD", "UPLOAD", "TOTAL"}}
	for _, d := range days {
		down += d.DownloadMB
		up += d.UploadMB
		table.Rows = append(table.Rows, []string{d.Key(), output.MB(d.DownloadMB), output.MB(d.UploadMB), output.MB(d.TotalMB())})
	}
	table.Footer = []string{strconv.Itoa(len(days)) + " days", output.MB(down), output.MB(up), output.MB(down + up)}
	return output.Write(cmd.OutOrStdout(), f, days, table)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(model.DateLayout)
}
