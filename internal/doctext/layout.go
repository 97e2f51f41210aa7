package doctext

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/epiparam/epiextract/internal/model"
	"github.com/epiparam/epiextract/pkg/docint"
)

// LayoutProvider extracts text, tables, and section structure via the
// layout-analysis service.
type LayoutProvider struct {
	client docint.Client
}

// NewLayoutProvider creates a LayoutProvider over the given client.
func NewLayoutProvider(client docint.Client) *LayoutProvider {
	return &LayoutProvider{client: client}
}

// Extract reads the PDF, submits it for layout analysis, and assembles the
// DocumentText: line text plus serialized tables as full text, and
// section-segmented chunks for retrieval.
func (p *LayoutProvider) Extract(ctx context.Context, pdfPath string) (*model.DocumentText, error) {
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "doctext: read %s", pdfPath)
	}

	result, err := p.client.Analyze(ctx, pdf)
	if err != nil {
		return nil, eris.Wrapf(err, "doctext: analyze %s", pdfPath)
	}

	var lines strings.Builder
	for _, page := range result.Pages {
		for _, line := range page.Lines {
			lines.WriteString(line.Content)
			lines.WriteString("\n")
		}
	}

	tables := make([]string, 0, len(result.Tables))
	for _, t := range result.Tables {
		tables = append(tables, serializeTable(t))
	}

	return &model.DocumentText{
		SourceID: filepath.Base(pdfPath),
		FullText: model.JoinFullText(lines.String(), tables),
		Sections: assembleSections(result),
		Tables:   tables,
	}, nil
}

// serializeTable renders a detected table as a JSON array of row objects
// keyed by column index, so tabular numbers survive into the prompt context.
func serializeTable(t docint.Table) string {
	rows := make(map[int]map[string]string)
	for _, cell := range t.Cells {
		row, ok := rows[cell.RowIndex]
		if !ok {
			row = make(map[string]string)
			rows[cell.RowIndex] = row
		}
		row[strconv.Itoa(cell.ColumnIndex)] = cell.Content
	}

	ordered := make([]map[string]string, 0, len(rows))
	for i := 0; i < t.RowCount; i++ {
		if row, ok := rows[i]; ok {
			ordered = append(ordered, row)
		}
	}

	data, err := json.Marshal(ordered)
	if err != nil {
		return ""
	}
	return string(data)
}

// assembleSections resolves each section's paragraph pointers
// ("/paragraphs/N") into heading and body text.
func assembleSections(result *docint.AnalyzeResult) []model.Section {
	sections := make([]model.Section, 0, len(result.Sections))
	for _, sec := range result.Sections {
		var heading string
		var body strings.Builder
		for _, el := range sec.Elements {
			idx, ok := paragraphIndex(el)
			if !ok || idx >= len(result.Paragraphs) {
				continue
			}
			para := result.Paragraphs[idx]
			if para.Role == "sectionHeading" && heading == "" {
				heading = para.Content
				continue
			}
			body.WriteString(para.Content)
			body.WriteString("\n")
		}
		if heading != "" || body.Len() > 0 {
			sections = append(sections, model.Section{Heading: heading, Body: body.String()})
		}
	}
	return sections
}

func paragraphIndex(pointer string) (int, bool) {
	last := pointer[strings.LastIndex(pointer, "/")+1:]
	idx, err := strconv.Atoi(last)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
