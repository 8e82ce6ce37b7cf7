package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/internal/output"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/storage"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize archived usage",
	Long: `Summarize usage archived by sync, by calendar month. The report reads the
local archive only and does not contact the API.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("service", "s", "", "Filter by service ID")
	reportCmd.Flags().String("from", "", "First day to include (YYYY-MM-DD)")
	reportCmd.Flags().String("to", "", "Day to stop before (YYYY-MM-DD)")
	reportCmd.Flags().Bool("detailed", false, "Show individual days")
}

// report is the machine-readable form of the report command.
type report struct {
	Summary *model.UsageSummary `json:"summary" yaml:"summary"`
	Days    []model.UsageDay    `json:"days,omitempty" yaml:"days,omitempty"`
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := format()
	if err != nil {
		return err
	}

	serviceFilter, _ := cmd.Flags().GetString("service")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	detailed, _ := cmd.Flags().GetBool("detailed")

	filter := model.ArchiveFilter{ServiceID: model.ServiceID(serviceFilter)}
	if filter.From, err = parseDateFlag("from", from); err != nil {
		return err
	}
	if filter.To, err = parseDateFlag("to", to); err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	out, err := buildReport(cmd, store, filter, detailed)
	if err != nil {
		return err
	}

	table := output.Table{Header: []string{"MONTH", "DAYS", "DOWNLOAD", "UPLOAD", "TOTAL"}}
	for _, m := range out.Summary.ByMonth {
		table.Rows = append(table.Rows, []string{
			m.Month,
			strconv.FormatInt(m.Days, 10),
			output.MB(m.DownloadMB),
			output.MB(m.UploadMB),
			output.MB(m.DownloadMB + m.UploadMB),
		})
	}
	s := out.Summary
	table.Footer = []string{"Total", strconv.FormatInt(s.DayCount, 10), output.MB(s.TotalDownloadMB), output.MB(s.TotalUploadMB), output.MB(s.TotalDownloadMB + s.TotalUploadMB)}

	if err := output.Write(cmd.OutOrStdout(), f, out, table); err != nil {
		return err
	}
	if detailed && f.Resolve(cmd.OutOrStdout()) == output.FormatTable {
		fmt.Fprintln(cmd.OutOrStdout())
		return writeDays(cmd, output.FormatTable, out.Days)
	}
	return nil
}

func buildReport(cmd *cobra.Command, store storage.Storage, filter model.ArchiveFilter, detailed bool) (*report, error) {
	summary, err := store.AggregateUsage(cmd.Context(), filter)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	out := &report{Summary: summary}
	if detailed {
		if out.Days, err = store.QueryUsageDays(cmd.Context(), filter); err != nil {
			return nil, fmt.Errorf("query days: %w", err)
		}
	}
	return out, nil
}

func parseDateFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", name, v)
	}
	return t, nil
}
