// Package report collects per-document extraction results into tabular
// result sets and exports them. File-format logic lives here, behind generic
// sinks, so the extraction protocol never touches CSV or XLSX details.
package report

import (
	"github.com/epiparam/epiextract/internal/model"
)

// ResultSet accumulates extraction results in processing order: documents in
// the order they were processed (lexicographic by filename upstream),
// parameters in configured order within each document.
type ResultSet struct {
	paramOrder []string
	rows       []model.ExtractionResult
	docOrder   []string
	seenDocs   map[string]bool
}

// NewResultSet creates an empty result set over a fixed parameter order.
func NewResultSet(params []model.ParameterSpec) *ResultSet {
	return &ResultSet{
		paramOrder: model.ParameterNames(params),
		seenDocs:   make(map[string]bool),
	}
}

// Append adds the results of one document.
func (rs *ResultSet) Append(results ...model.ExtractionResult) {
	for _, r := range results {
		if !rs.seenDocs[r.DocumentID] {
			rs.seenDocs[r.DocumentID] = true
			rs.docOrder = append(rs.docOrder, r.DocumentID)
		}
		rs.rows = append(rs.rows, r)
	}
}

// Rows returns all accumulated rows in append order.
func (rs *ResultSet) Rows() []model.ExtractionResult {
	return rs.rows
}

// Documents returns document IDs in first-appearance order.
func (rs *ResultSet) Documents() []string {
	return rs.docOrder
}

// Parameters returns the configured parameter order.
func (rs *ResultSet) Parameters() []string {
	return rs.paramOrder
}

// valueFor returns the extracted value for one (document, parameter) cell,
// or "Not found" when the row is missing entirely.
func (rs *ResultSet) valueFor(documentID, parameterName string) string {
	for _, r := range rs.rows {
		if r.DocumentID == documentID && r.ParameterName == parameterName {
			return r.ExtractedValue
		}
	}
	return model.NotFound
}

// explanationFor returns the stage-1 explanation recorded for a document, if
// any.
func (rs *ResultSet) explanationFor(documentID string) string {
	for _, r := range rs.rows {
		if r.DocumentID == documentID && r.RawExplanation != "" {
			return r.RawExplanation
		}
	}
	return ""
}
