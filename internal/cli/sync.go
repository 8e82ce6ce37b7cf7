package cli

import (
	"fmt"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync <service-id> <YYYY|YYYY-MM|YYYY-MM-DD>",
	Short: "Fetch historic usage and archive it locally",
	Args:  cobra.ExactArgs(2),
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("overview", true, "Also archive a snapshot of the current overview")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := format()
	if err != nil {
		return err
	}
	withOverview, _ := cmd.Flags().GetBool("overview")

	t, store, err := initTracker(cmd.Context(), cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	id := model.ServiceID(args[0])
	days, err := t.Sync(cmd.Context(), id, args[1])
	if err != nil {
		return err
	}

	if withOverview {
		if _, err := t.SnapshotOverview(cmd.Context(), id); err != nil {
			return fmt.Errorf("record overview: %w", err)
		}
	}

	return writeDays(cmd, f, days)
}
