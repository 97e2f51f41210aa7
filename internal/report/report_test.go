package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiparam/epiextract/internal/model"
)

func testResultSet() *ResultSet {
	rs := NewResultSet([]model.ParameterSpec{
		{Name: "cfr"},
		{Name: "incubation"},
	})
	rs.Append(
		model.ExtractionResult{DocumentID: "a.pdf", ParameterName: "cfr", ExtractedValue: "20", RawExplanation: "analysis of a"},
		model.ExtractionResult{DocumentID: "a.pdf", ParameterName: "incubation", ExtractedValue: "11", RawExplanation: "analysis of a"},
	)
	rs.Append(
		model.ExtractionResult{DocumentID: "b.pdf", ParameterName: "cfr", ExtractedValue: model.NotFound, Note: "no document text"},
		model.ExtractionResult{DocumentID: "b.pdf", ParameterName: "incubation", ExtractedValue: model.NotFound, Note: "no document text"},
	)
	return rs
}

func TestResultSetOrdering(t *testing.T) {
	rs := testResultSet()

	assert.Equal(t, []string{"a.pdf", "b.pdf"}, rs.Documents())
	assert.Equal(t, []string{"cfr", "incubation"}, rs.Parameters())
	assert.Len(t, rs.Rows(), 4)

	// Re-appending a document does not duplicate it in the order.
	rs.Append(model.ExtractionResult{DocumentID: "a.pdf", ParameterName: "cfr", ExtractedValue: "21"})
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, rs.Documents())
}

func TestWriteCSV(t *testing.T) {
	rs := testResultSet()
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, rs.WriteCSV(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"document_id", "parameter_name", "extracted_value", "note"}, rows[0])
	assert.Equal(t, []string{"a.pdf", "cfr", "20", ""}, rows[1])
	assert.Equal(t, []string{"b.pdf", "cfr", "Not found", "no document text"}, rows[3])
}

func TestWriteWideCSV(t *testing.T) {
	rs := testResultSet()
	path := filepath.Join(t.TempDir(), "wide.csv")
	require.NoError(t, rs.WriteWideCSV(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"cfr", "incubation", "Paper"}, rows[0])
	assert.Equal(t, []string{"20", "11", "a.pdf"}, rows[1])
	assert.Equal(t, []string{"Not found", "Not found", "b.pdf"}, rows[2])
}

func TestWriteWideCSVMissingCell(t *testing.T) {
	rs := NewResultSet([]model.ParameterSpec{{Name: "cfr"}, {Name: "incubation"}})
	rs.Append(model.ExtractionResult{DocumentID: "a.pdf", ParameterName: "cfr", ExtractedValue: "20"})

	path := filepath.Join(t.TempDir(), "wide.csv")
	require.NoError(t, rs.WriteWideCSV(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	// A parameter with no row still fills its cell.
	assert.Equal(t, []string{"20", "Not found", "a.pdf"}, rows[1])
}

func TestWriteExplanations(t *testing.T) {
	rs := testResultSet()
	path := filepath.Join(t.TempDir(), "explanations.txt")
	require.NoError(t, rs.WriteExplanations(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "analysis of a")
	// One block per document; b.pdf had no explanation.
	assert.Equal(t, 1, strings.Count(content, "analysis of a"))
}
