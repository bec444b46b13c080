package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/formdesk/server/internal/export"
	"github.com/formdesk/server/internal/models"
	"github.com/formdesk/server/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	flagExportForm uint
	flagExportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a form's responses to an xlsx file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagExportForm == 0 {
			return fmt.Errorf("--form is required")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)

		var buf bytes.Buffer
		source, err := exportForm(cmd.Context(), db, flagExportForm, cfg.Forms.ExportLocation(), &buf)
		if err != nil {
			return err
		}

		out := flagExportOut
		if out == "" {
			out = export.Filename(flagExportForm, time.Now())
		}
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}

		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"form_id":   source.Form.ID,
				"title":     source.Form.Title,
				"responses": len(source.Responses),
				"questions": len(source.Questions),
				"file":      out,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d responses of %q to %s\n", len(source.Responses), source.Form.Title, out)
		return nil
	},
}

func init() {
	exportCmd.Flags().UintVar(&flagExportForm, "form", 0, "Form id to export")
	exportCmd.Flags().StringVarP(&flagExportOut, "out", "o", "", "Output file (default form-<id>-responses-<unix ms>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}

// exportForm writes the workbook for formID to w without access checks.
func exportForm(ctx context.Context, db *gorm.DB, formID uint, loc *time.Location, w io.Writer) (*services.ExportSource, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var form models.Form
	if err := db.WithContext(ctx).First(&form, formID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("form %d not found", formID)
		}
		return nil, fmt.Errorf("loading form %d: %w", formID, err)
	}

	responses := services.NewResponseService(db, nil)
	source, err := responses.LoadExportSource(ctx, &form)
	if err != nil {
		return nil, err
	}

	workbook := export.NewFormatter(loc).Build(source.Questions, source.Responses)
	if err := export.WriteXLSX(w, workbook); err != nil {
		if errors.Is(err, export.ErrDataTooLarge) {
			return nil, fmt.Errorf("form %d has answers too long for a spreadsheet cell: %w", formID, err)
		}
		return nil, err
	}
	return source, nil
}
