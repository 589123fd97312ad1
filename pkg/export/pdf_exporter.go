package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	// landscapeColumns is the column count from which pages switch to landscape.
	landscapeColumns = 6
	flagFillHex      = "#F8D7DA"
)

// flagFill is flagFillHex as RGB for gofpdf.
var flagFill = [3]int{0xF8, 0xD7, 0xDA}

// PDFExporter lays a dataset out as an A4 table. The header row repeats on every page and each
// page carries a "page n/total" footer.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation, usable := "P", 190.0
	if len(data.Headers) >= landscapeColumns {
		orientation, usable = "L", 277.0
	}
	colWidth := usable / float64(len(data.Headers))

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		if data.Title != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, tr(data.Title), "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(0xE9, 0xEC, 0xEF)
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, tr(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 6, fmt.Sprintf("page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "", 7)
	for _, row := range data.Rows {
		fill := data.flagged(row)
		if fill {
			pdf.SetFillColor(flagFill[0], flagFill[1], flagFill[2])
		}
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 6, tr(row[header]), "1", 0, "", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
