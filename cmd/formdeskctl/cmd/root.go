package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/formdesk/server/internal/config"
	"github.com/formdesk/server/internal/database"
	"github.com/formdesk/server/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	flagJSON       bool
	flagDBDriver   string
	flagSQLitePath string
	flagVerbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "formdeskctl",
	Short: "Operate a formdesk server from the terminal",
	Long: `formdeskctl runs the formdesk API and performs maintenance tasks
against its database directly.

Examples:
  formdeskctl serve                          Start the HTTP API
  formdeskctl migrate                        Create or update tables
  formdeskctl export --form 12 --out a.xlsx  Export a form's responses
  formdeskctl stats --user ann@example.com   Show a user's dashboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Init()
		if !flagVerbose && cmd.Name() != serveCmd.Name() {
			logger.SetOutput(io.Discard)
		}

		cfg = config.Load()
		if flagDBDriver != "" {
			cfg.DB.Driver = flagDBDriver
		}
		if flagSQLitePath != "" {
			cfg.DB.SQLitePath = flagSQLitePath
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagDBDriver, "db-driver", "", "Override DB_DRIVER (postgres or sqlite)")
	rootCmd.PersistentFlags().StringVar(&flagSQLitePath, "sqlite-path", "", "Override DB_SQLITE_PATH")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print structured logs to stdout")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func openDB() (*gorm.DB, error) {
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s database: %w", cfg.DB.Driver, err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
