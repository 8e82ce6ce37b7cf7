package cli

import (
	"fmt"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/client"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "abb version %s (client %s)\n", Version, client.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
