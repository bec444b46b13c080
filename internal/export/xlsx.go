package export

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ErrDataTooLarge reports a cell the spreadsheet format cannot hold.
var ErrDataTooLarge = errors.New("data too large for spreadsheet export")

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX encodes the workbook and writes it to w. Oversized cells fail
// with ErrDataTooLarge instead of being silently clipped.
func WriteXLSX(w io.Writer, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", wb.Responses.Name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(wb.Questions.Name); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	for _, table := range []Table{wb.Responses, wb.Questions} {
		if err := writeTable(f, table); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, table Table) error {
	header := make([]interface{}, 0, len(table.Header))
	for _, h := range table.Header {
		header = append(header, h)
	}

	rows := append([][]interface{}{header}, table.Rows...)
	for i, row := range rows {
		if err := checkCells(table.Name, i+1, row); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(table.Name, cell, &row); err != nil {
			if errors.Is(err, excelize.ErrCellCharsLength) {
				return fmt.Errorf("%w: %w", ErrDataTooLarge, err)
			}
			return fmt.Errorf("write %s row %d: %w", table.Name, i+1, err)
		}
	}

	for i, width := range table.Widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(table.Name, col, col, width); err != nil {
			return fmt.Errorf("set %s column width: %w", table.Name, err)
		}
	}
	return nil
}

func checkCells(sheet string, rowNumber int, row []interface{}) error {
	for col, value := range row {
		text, ok := value.(string)
		if !ok || utf8.RuneCountInString(text) <= excelize.TotalCellChars {
			continue
		}
		name, _ := excelize.CoordinatesToCellName(col+1, rowNumber)
		return fmt.Errorf("%w: %s!%s: %w", ErrDataTooLarge, sheet, name, excelize.ErrCellCharsLength)
	}
	return nil
}
