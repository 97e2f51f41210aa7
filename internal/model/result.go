package model

import "time"

// NotFound is the literal token recorded when no value is determinable for a
// (document, parameter) pair. Every layer of the pipeline uses this exact
// string so downstream classification is unambiguous.
const NotFound = "Not found"

// NA marks an absent ground-truth value.
const NA = "NA"

// ExtractionResult is the outcome of the two-stage protocol for one
// (document, parameter) pair. Immutable once produced within a run.
type ExtractionResult struct {
	DocumentID     string `json:"document_id" csv:"document_id"`
	ParameterName  string `json:"parameter_name" csv:"parameter_name"`
	ExtractedValue string `json:"extracted_value" csv:"extracted_value"`
	RawExplanation string `json:"raw_explanation,omitempty" csv:"-"`
	Note           string `json:"note,omitempty" csv:"note,omitempty"`
}

// Found reports whether a concrete value was extracted.
func (r ExtractionResult) Found() bool {
	return r.ExtractedValue != "" && r.ExtractedValue != NotFound
}

// GroundTruthRecord is an externally supplied true value for one
// (document, parameter) pair. TrueValue is NA when the document does not
// report the parameter.
type GroundTruthRecord struct {
	DocumentID    string `csv:"document_id"`
	ParameterName string `csv:"parameter_name"`
	TrueValue     string `csv:"true_value"`
}

// Absent reports whether the ground truth marks the parameter as not present
// in the document.
func (g GroundTruthRecord) Absent() bool {
	return g.TrueValue == "" || g.TrueValue == NA
}

// ConfusionLabel classifies an extracted value against ground truth.
type ConfusionLabel string

const (
	TruePositive  ConfusionLabel = "TP"
	TrueNegative  ConfusionLabel = "TN"
	FalsePositive ConfusionLabel = "FP"
	FalseNegative ConfusionLabel = "FN"
)

// Outcome is the coarse success marker recorded alongside the confusion
// label in refinement runs.
type Outcome string

const (
	OutcomeSuccess Outcome = "Success"
	OutcomeFail    Outcome = "Fail"
)

// OutcomeFor derives the outcome from a confusion label: correct
// classifications (TP, TN) are successes.
func OutcomeFor(label ConfusionLabel) Outcome {
	if label == TruePositive || label == TrueNegative {
		return OutcomeSuccess
	}
	return OutcomeFail
}

// RefinementRow is one appended entry in the cumulative refinement results
// table. Rows are append-only so iteration N can be diffed against N-1.
type RefinementRow struct {
	ID             string         `csv:"id"`
	Prompt         string         `csv:"prompt"`
	ModelName      string         `csv:"model_name"`
	ParameterName  string         `csv:"parameter_name"`
	DocumentID     string         `csv:"document_id"`
	ExtractedValue string         `csv:"extracted_value"`
	TrueValue      string         `csv:"true_value"`
	Outcome        Outcome        `csv:"outcome"`
	Confusion      ConfusionLabel `csv:"confusion"`
	Iteration      int            `csv:"iteration"`
	CreatedAt      time.Time      `csv:"created_at"`
}

// IterationMetrics is one entry in a PromptState history.
type IterationMetrics struct {
	Iteration int
	Metrics   map[string]float64
}

// PromptState tracks the evolving prompt for one parameter across refinement
// iterations. History is append-only; Iteration strictly increases.
type PromptState struct {
	ParameterName string
	Prompt        string
	Iteration     int
	History       []IterationMetrics
}

// Record appends metrics for the current iteration.
func (p *PromptState) Record(metrics map[string]float64) {
	p.History = append(p.History, IterationMetrics{Iteration: p.Iteration, Metrics: metrics})
}
