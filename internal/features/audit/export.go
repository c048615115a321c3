package audit

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Audit Trail"

var exportColumns = []string{
	"Timestamp", "Action", "From", "To", "Actor", "Role", "Step", "Comment", "Hash",
}

// WriteXLSX renders entries as a single-sheet workbook.
func WriteXLSX(w io.Writer, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, col)
		f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	for rowIdx, e := range entries {
		values := []any{
			e.Timestamp.Format("2006-01-02 15:04:05"),
			string(e.Action),
			deref(e.FromStatus),
			e.ToStatus,
			e.PerformedBy.Email,
			string(e.PerformedBy.Role),
			stepLabel(e.StepIndex),
			deref(e.Comment),
			e.Hash,
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(exportSheet, cell, v)
		}
	}

	for i := range exportColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(exportSheet, col, col, 18)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write audit workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stepLabel(i *int) string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("%d", *i+1)
}
