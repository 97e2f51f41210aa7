package cfr

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiparam/epiextract/internal/llm"
	"github.com/epiparam/epiextract/internal/model"
	"github.com/epiparam/epiextract/internal/scorer"
)

type scriptedCompleter struct {
	response string
	err      error
	prompts  []string
}

func (s *scriptedCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	s.prompts = append(s.prompts, messages[0].Content)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestExtractOverallCFR(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "analysis...\nOverall Hospitalized CFR: 20.1", "20.1"},
		{"equals separator", "Overall Hospitalized CFR = 20.1", "20.1"},
		{"bold markdown", "Overall Hospitalized CFR: **20.1**", "20.1"},
		{"case insensitive", "overall hospitalized cfr: 5", "5"},
		{"extra whitespace", "Overall  Hospitalized  CFR : 20.1", "20.1"},
		{"absent", "no summary line here", ""},
		{"non numeric", "Overall Hospitalized CFR: NA", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractOverallCFR(tt.raw))
		})
	}
}

func TestParseStandardText(t *testing.T) {
	text := `- PDF: paper1.pdf
- # hospitalized: 398
- # deaths: 80
Numerator: 80
Denominator: 398
a line without separator
- Statistical approach:
`

	values := ParseStandardText(text)
	assert.Equal(t, "paper1.pdf", values["PDF"])
	assert.Equal(t, "398", values["# hospitalized"])
	assert.Equal(t, "80", values["Numerator"])
	assert.Equal(t, "398", values["Denominator"])
	assert.Equal(t, "", values["Statistical approach"])
	assert.NotContains(t, values, "a line without separator")
}

func TestCalculateCFR(t *testing.T) {
	tests := []struct {
		name        string
		numerator   string
		denominator string
		want        string
	}{
		{"plain counts", "80", "398", "20.10"},
		{"counts with units", "80 deaths", "398 cases", "20.10"},
		{"thousands separator", "1,000", "10,000", "10.00"},
		{"missing numerator", "", "398", ""},
		{"missing denominator", "80", "", ""},
		{"zero denominator", "80", "0", ""},
		{"non numeric", "unknown", "398", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateCFR(tt.numerator, tt.denominator))
		})
	}
}

func TestExtractRaw(t *testing.T) {
	completer := &scriptedCompleter{
		response: "Subgroup analysis...\nOverall Hospitalized CFR: 20.10",
	}
	ex := NewExtractor(completer)

	result := ex.ExtractRaw(context.Background(), "paper1.pdf", "20", "[table data]", "document text")

	assert.Equal(t, "paper1.pdf", result.DocumentID)
	assert.Equal(t, "20", result.TrueValue)
	assert.Equal(t, "20.10", result.OverallCFR)
	assert.Contains(t, result.Response, "Subgroup analysis")

	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "Hospitalized Case Fatality Rate")
	assert.Contains(t, completer.prompts[0], "[table data]")
	assert.Contains(t, completer.prompts[0], "document text")
}

func TestExtractRawServiceFailure(t *testing.T) {
	ex := NewExtractor(&scriptedCompleter{err: eris.New("service down")})

	result := ex.ExtractRaw(context.Background(), "paper1.pdf", "20", "", "text")

	assert.Equal(t, "Error processing paper", result.Response)
	assert.Equal(t, "", result.OverallCFR)
}

func TestExtractStandard(t *testing.T) {
	completer := &scriptedCompleter{response: `PDF: paper1.pdf
cases confirmed: 450
# hospitalized: 398
# deaths: 80
Parameter Value: 20.1
Numerator: 80
Denominator: 398`}
	ex := NewExtractor(completer)

	values := ex.ExtractStandard(context.Background(), "paper1.pdf", "[table]", "text")

	assert.Equal(t, "paper1.pdf", values["PDF"])
	assert.Equal(t, "398", values["# hospitalized"])
	assert.Equal(t, "20.10", values[CalculatedColumn])
}

func TestExtractStandardFillsDocumentID(t *testing.T) {
	ex := NewExtractor(&scriptedCompleter{response: "Numerator: 80\nDenominator: 398"})

	values := ex.ExtractStandard(context.Background(), "paper1.pdf", "", "text")
	assert.Equal(t, "paper1.pdf", values["PDF"])
}

func TestExtractTruncatesLongInputs(t *testing.T) {
	completer := &scriptedCompleter{response: "Overall Hospitalized CFR: 1"}
	ex := NewExtractor(completer)

	ex.ExtractRaw(context.Background(), "paper1.pdf", "1",
		strings.Repeat("t", maxTableChars+100), strings.Repeat("d", maxTextChars+100))

	require.Len(t, completer.prompts, 1)
	assert.NotContains(t, completer.prompts[0], strings.Repeat("t", maxTableChars+1))
	assert.NotContains(t, completer.prompts[0], strings.Repeat("d", maxTextChars+1))
}

func TestCFREndToEndWithinTolerance(t *testing.T) {
	// 80 deaths among 398 hospitalized recomputes to 20.10%, which is within
	// the default tolerance of the recorded true value of 20.
	ex := NewExtractor(&scriptedCompleter{response: "Numerator: 80\nDenominator: 398"})

	values := ex.ExtractStandard(context.Background(), "paper1.pdf", "", "text")
	calculated := values[CalculatedColumn]
	require.Equal(t, "20.10", calculated)

	label := scorer.Classify("20", calculated, scorer.DefaultTolerance)
	assert.Equal(t, model.TruePositive, label)
}
