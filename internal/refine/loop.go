// Package refine implements the iterative prompt-refinement loop: propose a
// candidate extraction prompt from past outcomes, apply it to labelled
// documents, score the results and append them to the cumulative table, then
// repeat until the iteration budget runs out.
package refine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/extraction"
	"github.com/epiparam/epiextract/internal/llm"
	"github.com/epiparam/epiextract/internal/model"
	"github.com/epiparam/epiextract/internal/prompts"
	"github.com/epiparam/epiextract/internal/scorer"
	"github.com/epiparam/epiextract/internal/store"
)

// applyDocChars caps the document text used when applying a candidate
// prompt. Refinement runs many extractions per iteration, so the cap is
// tighter than the main pipeline's.
const applyDocChars = 16000

// refinerSystemPrompt frames the candidate-generation call: given the
// current prompt and a history of scored outcomes, propose a better prompt.
const refinerSystemPrompt = `You are an expert prompt engineer for scientific data extraction.
You will be given the current extraction prompt for one epidemiological parameter, together with past extraction attempts and whether each succeeded.
Analyze the failures and propose an improved extraction prompt that keeps the successes and fixes the failures.
Respond with the improved prompt text only, without commentary or surrounding quotes.`

// Document pairs a labelled document's extracted text with its true value
// for one parameter.
type Document struct {
	DocumentID string
	Text       string
	TrueValue  string
}

// Loop drives refinement for one parameter at a time. All produced rows are
// appended to the store; nothing is ever rewritten, so any iteration can be
// diffed against the one before it.
type Loop struct {
	completer llm.ChatCompleter
	st        store.Store
	lib       *prompts.Library
	modelName string
	tolerance float64
}

// NewLoop creates a refinement loop.
func NewLoop(completer llm.ChatCompleter, st store.Store, lib *prompts.Library, modelName string, tolerance float64) *Loop {
	return &Loop{
		completer: completer,
		st:        st,
		lib:       lib,
		modelName: modelName,
		tolerance: tolerance,
	}
}

// Run executes up to `iterations` refinement rounds for one parameter over
// the labelled documents, starting from basePrompt. Numbering continues from
// the store: the first round is MaxIteration+1. The final prompt state with
// per-iteration metrics is returned.
func (l *Loop) Run(ctx context.Context, param model.ParameterSpec, docs []Document, basePrompt string, iterations int) (*model.PromptState, error) {
	if iterations <= 0 {
		return nil, eris.New("refine: iteration budget must be positive")
	}
	if len(docs) == 0 {
		return nil, eris.Errorf("refine: no labelled documents for parameter %q", param.Name)
	}

	maxIteration, err := l.st.MaxIteration(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "refine: read max iteration")
	}

	state := &model.PromptState{
		ParameterName: param.Name,
		Prompt:        basePrompt,
		Iteration:     maxIteration + 1,
	}

	for round := 0; round < iterations; round++ {
		candidate, err := l.generateCandidate(ctx, param, state.Prompt)
		if err != nil {
			// A failed proposal is not fatal: re-apply the current prompt so
			// the iteration still produces comparable rows.
			zap.L().Warn("refine: candidate generation failed, reusing current prompt",
				zap.String("parameter", param.Name),
				zap.Int("iteration", state.Iteration),
				zap.Error(err),
			)
			candidate = state.Prompt
		}
		state.Prompt = candidate

		rows, err := l.apply(ctx, param, candidate, docs, state.Iteration)
		if err != nil {
			return nil, err
		}

		counts := scorer.Count(labelsOf(rows))
		metrics := scorer.Aggregate(counts)
		state.Record(metrics.Map())

		zap.L().Info("refine: iteration scored",
			zap.String("parameter", param.Name),
			zap.Int("iteration", state.Iteration),
			zap.Int("documents", len(rows)),
			zap.String("accuracy", scorer.Format(metrics.Accuracy)),
			zap.String("f1", scorer.Format(metrics.F1)),
		)

		state.Iteration++
	}

	// Iteration points one past the last scored round; step back so the
	// state reflects what was actually recorded.
	state.Iteration--
	return state, nil
}

// generateCandidate proposes the next prompt from the current one and the
// stored outcome history, then re-attaches the mandatory instruction block.
func (l *Loop) generateCandidate(ctx context.Context, param model.ParameterSpec, current string) (string, error) {
	history, err := l.historyBlocks(ctx, param.Name)
	if err != nil {
		return "", err
	}

	response, err := l.completer.Complete(ctx, []llm.Message{
		llm.System(refinerSystemPrompt),
		llm.User(fmt.Sprintf("This is the current extraction prompt:\n%s", current)),
		llm.User(fmt.Sprintf("These are the past extraction attempts:\n%s", history)),
	})
	if err != nil {
		return "", eris.Wrap(err, "refine: generate candidate")
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", eris.New("refine: empty candidate prompt")
	}

	return l.assemble(param, response), nil
}

// assemble prefixes the generated prompt with the fixed instruction block and
// the parameter header. The model may rewrite everything else, but these two
// pieces are always present in an applied prompt.
func (l *Loop) assemble(param model.ParameterSpec, generated string) string {
	var b strings.Builder
	if l.lib.RefinerInstructions != "" {
		b.WriteString(l.lib.RefinerInstructions)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "**Parameter to Extract:** %s\n\n", param.Name)
	b.WriteString(generated)
	return b.String()
}

// historyBlocks renders every stored outcome for the parameter as
// Prompt/Extracted/True/Success blocks separated by rule lines.
func (l *Loop) historyBlocks(ctx context.Context, parameterName string) (string, error) {
	rows, err := l.st.ListRefinementRows(ctx, store.AllIterations(parameterName))
	if err != nil {
		return "", eris.Wrap(err, "refine: list history")
	}
	if len(rows) == 0 {
		return "No past results.", nil
	}

	blocks := make([]string, len(rows))
	for i, row := range rows {
		blocks[i] = fmt.Sprintf("Prompt: %s\nExtracted: %s\nTrue: %s\nSuccess: %s",
			row.Prompt, row.ExtractedValue, row.TrueValue, row.Outcome)
	}
	return strings.Join(blocks, "\n---\n"), nil
}

// apply runs the candidate prompt over every labelled document, classifies
// each extraction, and appends one row per document.
func (l *Loop) apply(ctx context.Context, param model.ParameterSpec, candidate string, docs []Document, iteration int) ([]model.RefinementRow, error) {
	lib := &prompts.Library{
		SysPrompt:    candidate,
		RefinePrompt: l.lib.RefinePrompt,
	}
	engine := extraction.NewEngine(l.completer, lib, []model.ParameterSpec{param},
		extraction.WithMaxDocChars(applyDocChars),
	)

	rows := make([]model.RefinementRow, 0, len(docs))
	for _, doc := range docs {
		results := engine.Extract(ctx, &model.DocumentText{
			SourceID: doc.DocumentID,
			FullText: doc.Text,
		})
		extracted := results[0].ExtractedValue

		label := scorer.Classify(doc.TrueValue, extracted, l.tolerance)
		saved, err := l.st.AppendRefinementRow(ctx, model.RefinementRow{
			Prompt:         candidate,
			ModelName:      l.modelName,
			ParameterName:  param.Name,
			DocumentID:     doc.DocumentID,
			ExtractedValue: extracted,
			TrueValue:      doc.TrueValue,
			Outcome:        model.OutcomeFor(label),
			Confusion:      label,
			Iteration:      iteration,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "refine: append row for %s", doc.DocumentID)
		}
		rows = append(rows, *saved)
	}
	return rows, nil
}

func labelsOf(rows []model.RefinementRow) []model.ConfusionLabel {
	labels := make([]model.ConfusionLabel, len(rows))
	for i, row := range rows {
		labels[i] = row.Confusion
	}
	return labels
}
