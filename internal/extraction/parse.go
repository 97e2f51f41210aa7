package extraction

import (
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/model"
)

// parseRefined parses the stage-2 structured response into one result per
// configured parameter. Parsing is strict about shape, lenient about
// decoration: fenced JSON is unwrapped, and any parameter absent from the
// response is recorded as "Not found" rather than dropped.
func (e *Engine) parseRefined(documentID, refined string) []model.ExtractionResult {
	values, parseErr := parseValueMap(refined)
	if parseErr != nil {
		zap.L().Warn("extraction: stage-2 response not parseable",
			zap.String("document", documentID),
			zap.Error(parseErr),
		)
		return e.NotFoundResults(documentID, "structured response not parseable")
	}

	results := make([]model.ExtractionResult, len(e.params))
	for i, p := range e.params {
		result := model.ExtractionResult{
			DocumentID:    documentID,
			ParameterName: p.Name,
		}

		raw, ok := values[p.Name]
		if !ok {
			result.ExtractedValue = model.NotFound
			result.Note = "parameter absent from structured response"
		} else if value := formatValue(raw); value == "" {
			result.ExtractedValue = model.NotFound
		} else {
			result.ExtractedValue = value
		}

		results[i] = result
	}
	return results
}

// parseValueMap unmarshals the model's JSON object, stripping code fences
// and any prose around the outermost braces.
func parseValueMap(text string) (map[string]any, error) {
	cleaned := cleanJSON(text)

	var values map[string]any
	if err := json.Unmarshal([]byte(cleaned), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// cleanJSON strips markdown code fences and leading/trailing prose so the
// remaining text spans the outermost JSON object.
func cleanJSON(text string) string {
	cleaned := strings.TrimSpace(text)

	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}
	return cleaned
}

// formatValue renders a parsed JSON value as the output cell string. Nulls
// and explicit not-found markers collapse to "", which callers record as
// "Not found".
func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" || strings.EqualFold(trimmed, model.NotFound) || strings.EqualFold(trimmed, model.NA) {
			return ""
		}
		return trimmed
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		// Nested structures are preserved verbatim so nothing is lost.
		data, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
