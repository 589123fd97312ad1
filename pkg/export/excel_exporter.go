package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter renders datasets into a single-sheet XLSX workbook.
type ExcelExporter struct {
	SheetName string
}

// NewExcelExporter constructs an XLSX exporter writing to the "Schedule" sheet.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{SheetName: "Schedule"}
}

// Render writes an optional title row, a styled header row, then one row per record.
func (e *ExcelExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := e.SheetName
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	row := 1
	if data.Title != "" {
		if err := f.SetCellValue(sheet, "A1", data.Title); err != nil {
			return nil, fmt.Errorf("write title: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(data.Headers), 1)
		if len(data.Headers) > 1 {
			if err := f.MergeCell(sheet, "A1", last); err != nil {
				return nil, fmt.Errorf("merge title: %w", err)
			}
		}
		row = 2
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, header := range data.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(data.Headers), row)
	if err := f.SetCellStyle(sheet, first, last, headerStyle); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	flagStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{flagFillHex}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("flag style: %w", err)
	}

	for _, record := range data.Rows {
		row++
		values := make([]interface{}, len(data.Headers))
		for i, header := range data.Headers {
			values[i] = record[header]
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		if data.flagged(record) {
			end, _ := excelize.CoordinatesToCellName(len(data.Headers), row)
			if err := f.SetCellStyle(sheet, cell, end, flagStyle); err != nil {
				return nil, fmt.Errorf("flag row %d: %w", row, err)
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(data.Headers))
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
