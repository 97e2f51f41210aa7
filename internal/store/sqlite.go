package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/epiparam/epiextract/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS document_texts (
	document_id TEXT PRIMARY KEY,
	content     TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS refinement_results (
	id              TEXT PRIMARY KEY,
	prompt          TEXT NOT NULL,
	model_name      TEXT NOT NULL,
	parameter_name  TEXT NOT NULL,
	document_id     TEXT NOT NULL,
	extracted_value TEXT NOT NULL,
	true_value      TEXT NOT NULL,
	outcome         TEXT NOT NULL,
	confusion       TEXT NOT NULL,
	iteration       INTEGER NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_refinement_parameter ON refinement_results(parameter_name);
CREATE INDEX IF NOT EXISTS idx_refinement_iteration ON refinement_results(iteration);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetDocumentText(ctx context.Context, documentID string) (*model.DocumentText, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT content FROM document_texts WHERE document_id = ?`,
		documentID,
	)

	var content string
	if err := row.Scan(&content); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, eris.Wrapf(err, "sqlite: get document text %s", documentID)
	}

	var doc model.DocumentText
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: unmarshal document text %s", documentID)
	}
	return &doc, true, nil
}

func (s *SQLiteStore) PutDocumentText(ctx context.Context, doc *model.DocumentText) error {
	content, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal document text")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO document_texts (document_id, content, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET content = excluded.content`,
		doc.SourceID, string(content), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put document text %s", doc.SourceID)
}

func (s *SQLiteStore) AppendRefinementRow(ctx context.Context, row model.RefinementRow) (*model.RefinementRow, error) {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refinement_results
		 (id, prompt, model_name, parameter_name, document_id, extracted_value, true_value, outcome, confusion, iteration, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Prompt, row.ModelName, row.ParameterName, row.DocumentID,
		row.ExtractedValue, row.TrueValue, string(row.Outcome), string(row.Confusion),
		row.Iteration, row.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: append refinement row")
	}
	return &row, nil
}

func (s *SQLiteStore) ListRefinementRows(ctx context.Context, filter RefinementFilter) ([]model.RefinementRow, error) {
	query := `SELECT id, prompt, model_name, parameter_name, document_id, extracted_value, true_value, outcome, confusion, iteration, created_at
	          FROM refinement_results WHERE 1=1`
	var args []any

	if filter.ParameterName != "" {
		query += ` AND parameter_name = ?`
		args = append(args, filter.ParameterName)
	}
	if filter.Iteration >= 0 {
		query += ` AND iteration = ?`
		args = append(args, filter.Iteration)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list refinement rows")
	}
	defer rows.Close()

	var result []model.RefinementRow
	for rows.Next() {
		var row model.RefinementRow
		var outcome, confusion string
		if err := rows.Scan(
			&row.ID, &row.Prompt, &row.ModelName, &row.ParameterName, &row.DocumentID,
			&row.ExtractedValue, &row.TrueValue, &outcome, &confusion,
			&row.Iteration, &row.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan refinement row")
		}
		row.Outcome = model.Outcome(outcome)
		row.Confusion = model.ConfusionLabel(confusion)
		result = append(result, row)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: iterate refinement rows")
}

func (s *SQLiteStore) MaxIteration(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(iteration), 0) FROM refinement_results`)

	var max int
	if err := row.Scan(&max); err != nil {
		return 0, eris.Wrap(err, "sqlite: max iteration")
	}
	return max, nil
}
