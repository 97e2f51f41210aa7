package scorer

import (
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/epiparam/epiextract/internal/model"
)

// LoadGroundTruth reads labelled true values from a CSV file with
// document_id, parameter_name and true_value columns.
func LoadGroundTruth(path string) ([]model.GroundTruthRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: read %s", path)
	}

	var records []model.GroundTruthRecord
	if err := csvutil.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "scorer: parse %s", path)
	}
	if len(records) == 0 {
		return nil, eris.Errorf("scorer: no ground truth records in %s", path)
	}
	return records, nil
}

// TruthMap indexes ground truth by (document, parameter) for lookup during
// scoring.
type TruthMap map[string]model.GroundTruthRecord

// NewTruthMap builds the lookup index.
func NewTruthMap(records []model.GroundTruthRecord) TruthMap {
	m := make(TruthMap, len(records))
	for _, r := range records {
		m[truthKey(r.DocumentID, r.ParameterName)] = r
	}
	return m
}

// Lookup returns the record for one (document, parameter) pair.
func (m TruthMap) Lookup(documentID, parameterName string) (model.GroundTruthRecord, bool) {
	r, ok := m[truthKey(documentID, parameterName)]
	return r, ok
}

// ForParameter returns the records labelled for one parameter.
func (m TruthMap) ForParameter(parameterName string) []model.GroundTruthRecord {
	var out []model.GroundTruthRecord
	for _, r := range m {
		if r.ParameterName == parameterName {
			out = append(out, r)
		}
	}
	return out
}

func truthKey(documentID, parameterName string) string {
	return documentID + "\x00" + parameterName
}

// Score classifies every extraction result that has a ground-truth label and
// returns the tallied counts. Results without a label are skipped.
func Score(results []model.ExtractionResult, truth TruthMap, tolerance float64) Counts {
	var c Counts
	for _, r := range results {
		gt, ok := truth.Lookup(r.DocumentID, r.ParameterName)
		if !ok {
			continue
		}
		c.Add(Classify(gt.TrueValue, r.ExtractedValue, tolerance))
	}
	return c
}
