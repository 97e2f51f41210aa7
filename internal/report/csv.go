package report

import (
	"encoding/csv"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// WriteCSV exports the long-format table: one row per (document, parameter)
// with the extracted value and any recovery note.
func (rs *ResultSet) WriteCSV(path string) error {
	data, err := csvutil.Marshal(rs.rows)
	if err != nil {
		return eris.Wrap(err, "report: marshal csv")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

// WriteWideCSV exports the wide-format table: one row per document with one
// column per parameter plus the trailing "Paper" column.
func (rs *ResultSet) WriteWideCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append(append([]string{}, rs.paramOrder...), "Paper")
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "report: write header")
	}

	for _, doc := range rs.docOrder {
		row := make([]string, 0, len(rs.paramOrder)+1)
		for _, param := range rs.paramOrder {
			row = append(row, rs.valueFor(doc, param))
		}
		row = append(row, doc)
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "report: write row for %s", doc)
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "report: flush csv")
}
