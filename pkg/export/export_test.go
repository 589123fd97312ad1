package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Fall Term",
		Headers: []string{"Course", "Teacher"},
		Rows: []map[string]string{
			{"Course": "MATH1", "Teacher": "Ada"},
			{"Course": "SCI1"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Course,Teacher\nMATH1,Ada\nSCI1,\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Notes"},
		Rows:    []map[string]string{{"Notes": "=HYPERLINK(\"x\")"}, {"Notes": "-"}, {"Notes": "lab"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Notes\n\"'=HYPERLINK(\"\"x\"\")\"\n'-\nlab\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))

	wide := Dataset{
		Title:      "Wide",
		Headers:    []string{"A", "B", "C", "D", "E", "F", "Conflict"},
		FlagColumn: "Conflict",
	}
	for i := 0; i < 80; i++ {
		row := map[string]string{"A": "x"}
		if i%7 == 0 {
			row["Conflict"] = "ROOM_DOUBLE_BOOKED"
		}
		wide.Rows = append(wide.Rows, row)
	}
	out, err = NewPDFExporter().Render(wide)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestDatasetFlagged(t *testing.T) {
	d := Dataset{FlagColumn: "Conflict"}
	assert.True(t, d.flagged(map[string]string{"Conflict": "TEACHER_DOUBLE_BOOKED"}))
	assert.False(t, d.flagged(map[string]string{"Conflict": ""}))
	assert.False(t, Dataset{}.flagged(map[string]string{"Conflict": "x"}))
}

func TestExcelExporterRender(t *testing.T) {
	out, err := NewExcelExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Schedule")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Fall Term", rows[0][0])
	assert.Equal(t, []string{"Course", "Teacher"}, rows[1])
	assert.Equal(t, []string{"MATH1", "Ada"}, rows[2])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("excel")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.IsType(t, &ExcelExporter{}, f.Renderer())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}
