package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXExporter renders datasets into a single sheet workbook.
type XLSXExporter struct {
	sheet string
}

// NewXLSXExporter builds an exporter writing into the named sheet.
func NewXLSXExporter(sheet string) *XLSXExporter {
	if sheet == "" {
		sheet = "Planning"
	}
	return &XLSXExporter{sheet: sheet}
}

// Render writes an optional title row, the header row and one row per record.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(e.sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if e.sheet != defaultSheet {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return nil, fmt.Errorf("drop default sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	row := 1
	lastCol := len(data.Headers)
	if data.Title != "" {
		if err := e.setCell(f, 1, row, data.Title); err != nil {
			return nil, err
		}
		if lastCol > 1 {
			first, last, err := rowBounds(lastCol, row)
			if err != nil {
				return nil, err
			}
			if err := f.MergeCell(e.sheet, first, last); err != nil {
				return nil, fmt.Errorf("merge title: %w", err)
			}
		}
		row++
	}

	for i, header := range data.Headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("header %q: %w", header, err)
		}
		if err := f.SetColWidth(e.sheet, col, col, 20); err != nil {
			return nil, fmt.Errorf("width of column %s: %w", col, err)
		}
		if err := e.setCell(f, i+1, row, header); err != nil {
			return nil, err
		}
	}
	first, last, err := rowBounds(lastCol, row)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(e.sheet, first, last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header row: %w", err)
	}
	row++

	for _, record := range data.Rows {
		for i, value := range data.Record(record) {
			if err := e.setCell(f, i+1, row, value); err != nil {
				return nil, err
			}
		}
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *XLSXExporter) setCell(f *excelize.File, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell %d,%d: %w", col, row, err)
	}
	if err := f.SetCellValue(e.sheet, cell, value); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	return nil
}

func rowBounds(lastCol, row int) (string, string, error) {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return "", "", fmt.Errorf("row %d: %w", row, err)
	}
	last, err := excelize.CoordinatesToCellName(lastCol, row)
	if err != nil {
		return "", "", fmt.Errorf("row %d: %w", row, err)
	}
	return first, last, nil
}
