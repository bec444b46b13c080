package cmd

import (
	"github.com/formdesk/server/internal/server"
	"github.com/spf13/cobra"
)

var flagPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPort != "" {
			cfg.Server.Port = flagPort
		}
		return server.Run(cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagPort, "port", "", "Override SERVER_PORT")
	rootCmd.AddCommand(serveCmd)
}
