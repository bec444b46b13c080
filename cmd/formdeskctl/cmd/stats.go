package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/formdesk/server/internal/config"
	"github.com/formdesk/server/internal/models"
	"github.com/formdesk/server/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var flagStatsUser string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the dashboard figures for a user's forms",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(flagStatsUser) == "" {
			return fmt.Errorf("--user is required")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)

		summaries, err := dashboardFor(cmd.Context(), db, flagStatsUser, cfg.Forms.LockPolicy)
		if err != nil {
			return err
		}

		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), summaries)
		}
		printSummaries(cmd.OutOrStdout(), summaries)
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&flagStatsUser, "user", "", "Email of the user whose forms to list")
	rootCmd.AddCommand(statsCmd)
}

func dashboardFor(ctx context.Context, db *gorm.DB, email string, policy config.LockPolicy) ([]services.FormSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var user models.User
	err := db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no user with email %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	access := services.NewAccessService(db, policy)
	responses := services.NewResponseService(db, access)
	forms := services.NewFormService(db, access, services.NewQuestionService(db), responses)
	return forms.ListForUser(ctx, user.ID)
}

func printSummaries(w io.Writer, summaries []services.FormSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No forms found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tROLE\tLOCKED\tRESPONSES\tCOMPLETION\tLAST RESPONSE")
	for _, s := range summaries {
		last := "-"
		if s.LastResponse != nil {
			last = s.LastResponse.Local().Format(time.RFC3339)
		}
		locked := "no"
		if s.IsLocked {
			locked = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d%%\t%s\n", s.ID, s.Title, s.UserRole, locked, s.ResponseCount, s.CompletionRate, last)
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
