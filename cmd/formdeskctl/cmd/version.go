package cmd

import (
	"fmt"

	"github.com/formdesk/server/internal/handlers"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the build version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), map[string]string{"version": handlers.Version})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "formdeskctl %s\n", handlers.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
