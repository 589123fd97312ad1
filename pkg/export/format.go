package export

import "fmt"

// Dataset defines tabular export content. Rows with a non-empty FlagColumn value are
// highlighted by renderers that support styling.
type Dataset struct {
	Title      string
	Headers    []string
	Rows       []map[string]string
	FlagColumn string
}

func (d Dataset) flagged(row map[string]string) bool {
	return d.FlagColumn != "" && row[d.FlagColumn] != ""
}

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// Format identifies an export document type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts the supported format names; "excel" is an alias of xlsx.
func ParseFormat(raw string) (Format, error) {
	switch raw {
	case "csv":
		return FormatCSV, nil
	case "pdf":
		return FormatPDF, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Renderer returns the renderer for the format.
func (f Format) Renderer() Renderer {
	switch f {
	case FormatPDF:
		return NewPDFExporter()
	case FormatXLSX:
		return NewExcelExporter()
	default:
		return NewCSVExporter()
	}
}
