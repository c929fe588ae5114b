package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetSpec is one worksheet: a bold header row followed by string rows.
type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Workbook wraps an excelize file built from sheet specs.
type Workbook struct {
	File *excelize.File
}

// NewWorkbook renders sheets into a new xlsx file. The first sheet replaces
// the default "Sheet1".
func NewWorkbook(sheets []SheetSpec) (*Workbook, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Title); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Title); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", s.Title, err)
		}

		if err := writeSheet(f, s, bold); err != nil {
			return nil, err
		}
	}
	return &Workbook{File: f}, nil
}

func writeSheet(f *excelize.File, s SheetSpec, headerStyle int) error {
	for c, h := range s.Header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellStr(s.Title, cell, h); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	if len(s.Header) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(s.Header), 1)
		_ = f.SetCellStyle(s.Title, "A1", end, headerStyle)
		_ = f.AutoFilter(s.Title, "A1:"+end, nil)
	}

	for r, row := range s.Rows {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStr(s.Title, cell, val); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	for c := range s.Header {
		width := float64(len(s.Header[c]))
		for r := 0; r < len(s.Rows) && r < 50; r++ {
			if c < len(s.Rows[r]) && float64(len(s.Rows[r][c])) > width {
				width = float64(len(s.Rows[r][c]))
			}
		}
		width = min(max(width*0.9, 12), 40)
		col, _ := excelize.ColumnNumberToName(c + 1)
		_ = f.SetColWidth(s.Title, col, col, width)
	}
	return nil
}

// WriteTo streams the workbook as xlsx.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.File.WriteTo(out)
}

// Close releases temporary resources held by excelize.
func (w *Workbook) Close() error {
	return w.File.Close()
}
