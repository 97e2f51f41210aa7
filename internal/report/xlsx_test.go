package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestWriteCFRWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfr.xlsx")

	raw := []CFRRawRow{
		{Paper: "a.pdf", TrueValue: "20", Response: "Overall Hospitalized CFR: 20.1", OverallCFR: "20.1"},
		{Paper: "b.pdf", TrueValue: "NA", Response: "Error processing paper"},
	}
	columns := []string{"PDF", "Numerator", "Denominator", "calculated CFR"}
	standard := []map[string]string{
		{"PDF": "a.pdf", "Numerator": "80", "Denominator": "398", "calculated CFR": "20.10"},
		{"PDF": "b.pdf"},
	}

	require.NoError(t, WriteCFRWorkbook(path, raw, standard, columns))

	file, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 2)

	rawSheet := file.Sheets[0]
	assert.Equal(t, "raw response", rawSheet.Name)
	assert.Equal(t, "Papers", rawSheet.Rows[0].Cells[0].String())
	assert.Equal(t, "overall CFR", rawSheet.Rows[0].Cells[3].String())
	assert.Equal(t, "a.pdf", rawSheet.Rows[1].Cells[0].String())
	assert.Equal(t, "20.1", rawSheet.Rows[1].Cells[3].String())
	assert.Equal(t, "Error processing paper", rawSheet.Rows[2].Cells[2].String())

	stdSheet := file.Sheets[1]
	assert.Equal(t, "standard format", stdSheet.Name)
	assert.Equal(t, columns, cellValues(stdSheet.Rows[0]))
	assert.Equal(t, []string{"a.pdf", "80", "398", "20.10"}, cellValues(stdSheet.Rows[1]))
	assert.Equal(t, []string{"b.pdf", "", "", ""}, cellValues(stdSheet.Rows[2]))
}

func cellValues(row *xlsx.Row) []string {
	values := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		values[i] = c.String()
	}
	return values
}
