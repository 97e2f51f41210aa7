package doctext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiparam/epiextract/pkg/docint"
)

// fakeAnalyzer returns a canned analysis result.
type fakeAnalyzer struct {
	result *docint.AnalyzeResult
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ []byte) (*docint.AnalyzeResult, error) {
	return f.result, f.err
}

func analysisFixture() *docint.AnalyzeResult {
	return &docint.AnalyzeResult{
		Pages: []docint.Page{
			{PageNumber: 1, Lines: []docint.Line{{Content: "line one"}, {Content: "line two"}}},
			{PageNumber: 2, Lines: []docint.Line{{Content: "line three"}}},
		},
		Paragraphs: []docint.Paragraph{
			{Role: "sectionHeading", Content: "Methods"},
			{Content: "we enrolled patients"},
			{Content: "follow-up was 30 days"},
		},
		Sections: []docint.Section{
			{Elements: []string{"/paragraphs/0", "/paragraphs/1", "/paragraphs/2"}},
			{Elements: []string{"/paragraphs/99", "not-a-pointer"}},
		},
		Tables: []docint.Table{{
			RowCount: 2, ColumnCount: 2,
			Cells: []docint.Cell{
				{RowIndex: 0, ColumnIndex: 0, Content: "deaths"},
				{RowIndex: 0, ColumnIndex: 1, Content: "cases"},
				{RowIndex: 1, ColumnIndex: 0, Content: "80"},
				{RowIndex: 1, ColumnIndex: 1, Content: "398"},
			},
		}},
	}
}

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paper1.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-fake"), 0o644))
	return path
}

func TestLayoutProviderExtract(t *testing.T) {
	provider := NewLayoutProvider(&fakeAnalyzer{result: analysisFixture()})

	doc, err := provider.Extract(context.Background(), writeTempPDF(t))
	require.NoError(t, err)

	assert.Equal(t, "paper1.pdf", doc.SourceID)

	// Line text first, then the tables block.
	assert.Contains(t, doc.FullText, "line one\nline two\nline three\n")
	assert.Contains(t, doc.FullText, "\n\n\nTables:\n")
	assert.Contains(t, doc.FullText, `{"0":"80","1":"398"}`)

	require.Len(t, doc.Tables, 1)
	assert.Equal(t, `[{"0":"deaths","1":"cases"},{"0":"80","1":"398"}]`, doc.Tables[0])

	// The second section resolves to nothing and is dropped.
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Methods", doc.Sections[0].Heading)
	assert.Equal(t, "we enrolled patients\nfollow-up was 30 days\n", doc.Sections[0].Body)
}

func TestLayoutProviderMissingFile(t *testing.T) {
	provider := NewLayoutProvider(&fakeAnalyzer{result: analysisFixture()})

	_, err := provider.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestLayoutProviderAnalyzeError(t *testing.T) {
	provider := NewLayoutProvider(&fakeAnalyzer{err: docint.ErrUnparsable})

	_, err := provider.Extract(context.Background(), writeTempPDF(t))
	assert.ErrorIs(t, err, docint.ErrUnparsable)
}

func TestSerializeTableSkipsEmptyRows(t *testing.T) {
	table := docint.Table{
		RowCount: 3,
		Cells: []docint.Cell{
			{RowIndex: 0, ColumnIndex: 0, Content: "a"},
			{RowIndex: 2, ColumnIndex: 0, Content: "c"},
		},
	}
	assert.Equal(t, `[{"0":"a"},{"0":"c"}]`, serializeTable(table))
}

func TestParagraphIndex(t *testing.T) {
	idx, ok := paragraphIndex("/paragraphs/7")
	assert.True(t, ok)
	assert.Equal(t, 7, idx)

	_, ok = paragraphIndex("/paragraphs/x")
	assert.False(t, ok)
}
