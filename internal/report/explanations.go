package report

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// WriteExplanations exports the raw stage-1 explanations, one block per
// document in processing order, separated by blank lines.
func (rs *ResultSet) WriteExplanations(path string) error {
	var b strings.Builder
	for _, doc := range rs.docOrder {
		if exp := rs.explanationFor(doc); exp != "" {
			b.WriteString(exp)
			b.WriteString("\n\n")
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
