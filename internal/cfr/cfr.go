// Package cfr implements the hospitalized case-fatality-rate validation
// workflow: a targeted raw-reasoning extraction plus a fixed-column standard
// extraction per paper, exported as a two-sheet workbook against known true
// values.
package cfr

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/llm"
)

// RawPrompt asks for an open-form hospitalized CFR extraction ending in a
// parseable summary line.
const RawPrompt = `Extract the values for the parameter Hospitalized Case Fatality Rate (CFR) for Measles from the provided document.
Guidelines:
1. Case Fatality Rate (CFR) is the proportion of patients who die among cases; here it covers only patients formally admitted to hospital due to illness severity.
2. If the document directly provides a percentage for the hospitalized CFR and no raw numbers are available, extract that percentage without further calculation. Otherwise extract the raw numbers (deaths and total hospitalized cases) used to derive it.
3. Only count deaths that occurred during hospitalization. Exclude deaths where hospitalization was refused, the patient left against medical advice, the event occurred outside the formal hospitalized setting, or the death is noted as not fully attributable to measles. If the document states no deaths occurred during hospitalization, take hospitalized deaths as 0.
4. If multiple subgroups are reported, extract the raw numbers and CFR for each subgroup, and additionally compute an overall hospitalized CFR as the sum of subgroup deaths divided by the sum of subgroup hospitalized cases.
5. Always recalculate the CFR as (total hospitalized deaths / total hospitalized cases) x 100, rounded to two decimal places, and check reported percentages against this calculation.
6. If a table contains a total or clearly summative row, use those numbers for the overall hospitalized CFR.
7. If no value is found, or the data lack both the raw case and death counts, return "NA".

Extract the values following these guidelines.
Lastly, after completing your extraction, provide a final summary line in the following exact format:
Overall Hospitalized CFR: <value>`

// StandardPrompt asks for the fixed-column standard extraction as plain
// "field: value" lines.
const StandardPrompt = `For the purpose of this extraction, Hospitalized CFR is the case fatality rate among patients admitted to hospital due to illness severity.
Extract the following details for Hospitalized CFR from the document and format the response as plain text.
For missing values, leave them blank. (Note: '#' means the number of)
Separate multiple reports by a blank line.
- PDF: <value>
- cases confirmed: <value>
- cases suspected: <value>
- # symptomatic cases: <value>
- # hospitalized: <value>
- # deaths: <value>
- Sample size - number of observations: <value>
- Sample size - number of studies: <value>
- Age_min: <value>
- Age_max: <value>
- Parameter Value: <value>
- Parameter range - lower value: <value>
- Parameter range - upper value: <value>
- Statistical approach: <value>
- Numerator: <value>
- Denominator: <value>

Tables and Document Text:`

// StandardColumns is the fixed column order of the standard-format sheet.
var StandardColumns = []string{
	"PDF",
	"cases confirmed",
	"cases suspected",
	"# symptomatic cases",
	"# hospitalized",
	"# deaths",
	"Sample size - number of observations",
	"Sample size - number of studies",
	"Age_min",
	"Age_max",
	"Parameter Value",
	"Parameter range - lower value",
	"Parameter range - upper value",
	"Statistical approach",
	"Numerator",
	"Denominator",
}

// CalculatedColumn holds the CFR recomputed from the extracted numerator and
// denominator.
const CalculatedColumn = "calculated CFR"

const (
	maxTableChars = 10000
	maxTextChars  = 25000
)

var overallCFRPattern = regexp.MustCompile(`(?i)Overall\s+Hospitalized\s+CFR\s*[:=]\s*\**([0-9.]+)\**`)

var nonDigits = regexp.MustCompile(`[^\d]`)

// RawResult is one row of the raw-response sheet.
type RawResult struct {
	DocumentID string
	TrueValue  string
	Response   string
	OverallCFR string
}

// Extractor runs the two CFR prompts per paper.
type Extractor struct {
	completer llm.ChatCompleter
}

// NewExtractor creates a CFR extractor.
func NewExtractor(completer llm.ChatCompleter) *Extractor {
	return &Extractor{completer: completer}
}

// ExtractRaw runs the open-form extraction. Call failures degrade to an
// error marker response, keeping the batch alive.
func (e *Extractor) ExtractRaw(ctx context.Context, documentID, trueValue, tableData, docText string) RawResult {
	prompt := fmt.Sprintf("%s\nTable Data:\n%s\nDocument Text:\n%s",
		RawPrompt, truncate(tableData, maxTableChars), truncate(docText, maxTextChars))

	response, err := e.completer.Complete(ctx, []llm.Message{llm.User(prompt)})
	if err != nil {
		zap.L().Warn("cfr: raw extraction failed",
			zap.String("document", documentID),
			zap.Error(err),
		)
		response = "Error processing paper"
	}
	response = strings.TrimSpace(response)

	return RawResult{
		DocumentID: documentID,
		TrueValue:  trueValue,
		Response:   response,
		OverallCFR: ExtractOverallCFR(response),
	}
}

// ExtractStandard runs the fixed-column extraction and parses the response
// into column values. The PDF column always carries the document ID.
func (e *Extractor) ExtractStandard(ctx context.Context, documentID, tableData, docText string) map[string]string {
	prompt := fmt.Sprintf("PDF: %s\n%s\nTable Data:\n%s\nDocument Text:\n%s",
		documentID, StandardPrompt, truncate(tableData, maxTableChars), truncate(docText, maxTextChars))

	response, err := e.completer.Complete(ctx, []llm.Message{llm.User(prompt)})
	if err != nil {
		zap.L().Warn("cfr: standard extraction failed",
			zap.String("document", documentID),
			zap.Error(err),
		)
		response = ""
	}

	parsed := ParseStandardText(response)
	if parsed["PDF"] == "" {
		parsed["PDF"] = documentID
	}
	parsed[CalculatedColumn] = CalculateCFR(parsed["Numerator"], parsed["Denominator"])
	return parsed
}

// ExtractOverallCFR pulls the value from the summary line
// "Overall Hospitalized CFR: <value>"; "" when absent.
func ExtractOverallCFR(raw string) string {
	match := overallCFRPattern.FindStringSubmatch(raw)
	if match == nil {
		return ""
	}
	return match[1]
}

// ParseStandardText parses "field: value" lines into a map, stripping any
// leading list dash.
func ParseStandardText(text string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line[:idx]), "- "))
		value := strings.TrimSpace(line[idx+1:])
		if key != "" {
			values[key] = value
		}
	}
	return values
}

// extractInt strips non-digit characters and parses what remains.
func extractInt(value string) (int, bool) {
	cleaned := nonDigits.ReplaceAllString(value, "")
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CalculateCFR recomputes the CFR percentage from the extracted numerator
// and denominator strings, rounded to two decimals; "" when either is
// missing or the denominator is zero.
func CalculateCFR(numerator, denominator string) string {
	num, numOK := extractInt(numerator)
	den, denOK := extractInt(denominator)
	if !numOK || !denOK || den == 0 {
		return ""
	}
	return strconv.FormatFloat(float64(num)/float64(den)*100, 'f', 2, 64)
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
