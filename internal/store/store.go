package store

import (
	"context"

	"github.com/epiparam/epiextract/internal/model"
)

// Store defines the persistence interface for the extraction pipeline: the
// extracted-text cache and the append-only cumulative refinement table.
type Store interface {
	// Text cache
	GetDocumentText(ctx context.Context, documentID string) (*model.DocumentText, bool, error)
	PutDocumentText(ctx context.Context, doc *model.DocumentText) error

	// Refinement results. Rows are append-only; nothing updates or deletes
	// them, so iteration N can always be diffed against N-1.
	AppendRefinementRow(ctx context.Context, row model.RefinementRow) (*model.RefinementRow, error)
	ListRefinementRows(ctx context.Context, filter RefinementFilter) ([]model.RefinementRow, error)
	MaxIteration(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// RefinementFilter specifies criteria for listing refinement rows.
// Iteration < 0 means all iterations.
type RefinementFilter struct {
	ParameterName string
	Iteration     int
}

// AllIterations matches every iteration for an optional parameter name.
func AllIterations(parameterName string) RefinementFilter {
	return RefinementFilter{ParameterName: parameterName, Iteration: -1}
}
