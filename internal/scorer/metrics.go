package scorer

import (
	"math"
	"strconv"

	"github.com/epiparam/epiextract/internal/model"
)

// Metrics holds the aggregate confusion-matrix metrics for one evaluation.
// A metric whose denominator is zero is NaN; Format renders it as
// "undefined".
type Metrics struct {
	Sensitivity float64
	Specificity float64
	Precision   float64
	Accuracy    float64
	F1          float64
	MCC         float64
}

// Aggregate computes the standard confusion-matrix metrics over the counts.
func Aggregate(c Counts) Metrics {
	tp := float64(c.TP)
	tn := float64(c.TN)
	fp := float64(c.FP)
	fn := float64(c.FN)

	mccDenom := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))

	return Metrics{
		Sensitivity: safeDivide(tp, tp+fn),
		Specificity: safeDivide(tn, tn+fp),
		Precision:   safeDivide(tp, tp+fp),
		Accuracy:    safeDivide(tp+tn, tp+tn+fp+fn),
		F1:          safeDivide(2*tp, 2*tp+fp+fn),
		MCC:         safeDivide(tp*tn-fp*fn, mccDenom),
	}
}

// safeDivide returns NaN instead of failing on a zero denominator.
func safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return math.NaN()
	}
	return numerator / denominator
}

// Map returns the metrics keyed by name, for PromptState history entries.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"sensitivity": m.Sensitivity,
		"specificity": m.Specificity,
		"precision":   m.Precision,
		"accuracy":    m.Accuracy,
		"f1":          m.F1,
		"mcc":         m.MCC,
	}
}

// Format renders one metric value, using "undefined" for NaN.
func Format(v float64) string {
	if math.IsNaN(v) {
		return "undefined"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// IterationDiff lists the documents whose outcome flipped between two row
// sets, typically consecutive refinement iterations.
func IterationDiff(prev, curr []model.RefinementRow) (failToSuccess, successToFail []string) {
	prevOutcomes := make(map[string]model.Outcome, len(prev))
	for _, row := range prev {
		prevOutcomes[row.DocumentID] = row.Outcome
	}

	for _, row := range curr {
		before, ok := prevOutcomes[row.DocumentID]
		if !ok {
			continue
		}
		switch {
		case before == model.OutcomeFail && row.Outcome == model.OutcomeSuccess:
			failToSuccess = append(failToSuccess, row.DocumentID)
		case before == model.OutcomeSuccess && row.Outcome == model.OutcomeFail:
			successToFail = append(successToFail, row.DocumentID)
		}
	}
	return failToSuccess, successToFail
}
