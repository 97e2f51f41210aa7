// Package scorer classifies extracted values against ground truth and
// aggregates confusion-matrix metrics.
package scorer

import (
	"strconv"
	"strings"

	"github.com/epiparam/epiextract/internal/model"
)

// DefaultTolerance is the absolute numeric band within which an extracted
// value counts as matching the true value.
const DefaultTolerance = 1.0

// Classify labels one extracted value against its ground truth. It is a pure
// function of its inputs: rules are applied in order, numeric comparison
// uses an absolute tolerance band, and non-numeric pairs fall back to exact
// string equality.
func Classify(trueValue, extracted string, tolerance float64) model.ConfusionLabel {
	trueAbsent := isAbsentTruth(trueValue)
	extractedAbsent := isNotFound(extracted)

	switch {
	case trueAbsent && extractedAbsent:
		return model.TrueNegative
	case trueAbsent:
		return model.FalsePositive
	case extractedAbsent:
		return model.FalseNegative
	}

	trueNum, trueOK := parseNumeric(trueValue)
	extractedNum, extractedOK := parseNumeric(extracted)

	if trueOK && extractedOK {
		diff := trueNum - extractedNum
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance {
			return model.TruePositive
		}
		return model.FalseNegative
	}

	// Non-numeric pair: exact equality stands in for the tolerance check.
	if strings.TrimSpace(trueValue) == strings.TrimSpace(extracted) {
		return model.TruePositive
	}
	return model.FalseNegative
}

func isAbsentTruth(v string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || strings.EqualFold(trimmed, model.NA)
}

func isNotFound(v string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || strings.EqualFold(trimmed, model.NotFound)
}

// parseNumeric parses a value string as a float, tolerating surrounding
// whitespace and a trailing percent sign.
func parseNumeric(v string) (float64, bool) {
	trimmed := strings.TrimSpace(v)
	trimmed = strings.TrimSuffix(trimmed, "%")
	trimmed = strings.TrimSpace(trimmed)
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Counts tallies confusion labels.
type Counts struct {
	TP int
	TN int
	FP int
	FN int
}

// Add tallies one label.
func (c *Counts) Add(label model.ConfusionLabel) {
	switch label {
	case model.TruePositive:
		c.TP++
	case model.TrueNegative:
		c.TN++
	case model.FalsePositive:
		c.FP++
	case model.FalseNegative:
		c.FN++
	}
}

// Total returns the number of counted labels.
func (c Counts) Total() int {
	return c.TP + c.TN + c.FP + c.FN
}

// Count tallies a label sequence.
func Count(labels []model.ConfusionLabel) Counts {
	var c Counts
	for _, l := range labels {
		c.Add(l)
	}
	return c
}
