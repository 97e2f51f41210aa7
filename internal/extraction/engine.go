// Package extraction implements the two-stage extraction protocol: a
// discovery query that lets the model reason freely over the document
// context, followed by a formatting query that constrains the findings to
// one value per parameter.
package extraction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/llm"
	"github.com/epiparam/epiextract/internal/model"
	"github.com/epiparam/epiextract/internal/prompts"
	"github.com/epiparam/epiextract/internal/rag"
)

// defaultMaxDocChars caps the document text injected into stage-1 prompts.
const defaultMaxDocChars = 25000

// Engine executes the two-stage protocol for one document at a time. It is
// agnostic to how the stage-1 context was produced: full document text and
// retrieved chunks go through the identical protocol.
type Engine struct {
	completer        llm.ChatCompleter
	lib              *prompts.Library
	params           []model.ParameterSpec
	maxDocChars      int
	keepExplanations bool
}

// Option configures the engine.
type Option func(*Engine)

// WithMaxDocChars caps the characters of document context per prompt.
func WithMaxDocChars(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDocChars = n
		}
	}
}

// WithExplanations retains the raw stage-1 response on each result.
func WithExplanations(keep bool) Option {
	return func(e *Engine) {
		e.keepExplanations = keep
	}
}

// NewEngine creates an extraction engine for a fixed parameter set.
func NewEngine(completer llm.ChatCompleter, lib *prompts.Library, params []model.ParameterSpec, opts ...Option) *Engine {
	e := &Engine{
		completer:   completer,
		lib:         lib,
		params:      params,
		maxDocChars: defaultMaxDocChars,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Parameters returns the engine's parameter specs in configured order.
func (e *Engine) Parameters() []model.ParameterSpec {
	return e.params
}

// Extract runs the two-stage protocol over the document's full text.
// It always returns exactly one result per configured parameter; every
// failure mode degrades to "Not found" rows, never to an aborted document.
func (e *Engine) Extract(ctx context.Context, doc *model.DocumentText) []model.ExtractionResult {
	return e.run(ctx, doc.SourceID, e.lib.SysPrompt, articleContext(truncate(doc.FullText, e.maxDocChars)))
}

// ExtractRAG runs the protocol with retrieved context: for each parameter
// independently, the top-k most similar chunks of this document replace the
// full text. Retrieval failures degrade to an empty extract block for that
// parameter.
func (e *Engine) ExtractRAG(ctx context.Context, documentID string, index *rag.Index, topK int) []model.ExtractionResult {
	var b strings.Builder
	for _, p := range e.params {
		hits, err := index.QueryDocument(ctx, documentID, p.Query(), topK)
		if err != nil {
			zap.L().Warn("extraction: retrieval failed",
				zap.String("document", documentID),
				zap.String("parameter", p.Name),
				zap.Error(err),
			)
		}
		fmt.Fprintf(&b, "### %s\n", p.Name)
		for _, h := range hits {
			b.WriteString(h.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return e.run(ctx, documentID, e.lib.RAGSysPrompt, extractsContext(b.String()))
}

// NotFoundResults returns the placeholder row set for a document whose text
// could not be extracted at all. The output table keeps its shape: one row
// per parameter, each "Not found" with the given note.
func (e *Engine) NotFoundResults(documentID, note string) []model.ExtractionResult {
	results := make([]model.ExtractionResult, len(e.params))
	for i, p := range e.params {
		results[i] = model.ExtractionResult{
			DocumentID:     documentID,
			ParameterName:  p.Name,
			ExtractedValue: model.NotFound,
			Note:           note,
		}
	}
	return results
}

// contextBlock is the document-context portion of a stage-1 prompt.
type contextBlock struct {
	label string
	text  string
}

func articleContext(text string) contextBlock {
	return contextBlock{label: "This is the article text", text: text}
}

func extractsContext(text string) contextBlock {
	return contextBlock{label: "These are the relevant extracts", text: text}
}

func (e *Engine) run(ctx context.Context, documentID, sysPrompt string, docCtx contextBlock) []model.ExtractionResult {
	if strings.TrimSpace(docCtx.text) == "" {
		return e.NotFoundResults(documentID, "no document text")
	}

	paramList := e.parameterList()

	// Stage 1: discovery. Free-text reasoning over the context.
	firstResponse, err := e.completer.Complete(ctx, []llm.Message{
		llm.System(sysPrompt),
		llm.User(fmt.Sprintf("%s:\n%s\n\n", docCtx.label, docCtx.text)),
		llm.User(fmt.Sprintf("These are the requested parameters:\n%s", paramList)),
	})
	if err != nil || strings.TrimSpace(firstResponse) == "" {
		if err != nil {
			zap.L().Warn("extraction: discovery call failed",
				zap.String("document", documentID),
				zap.Error(err),
			)
		}
		return e.NotFoundResults(documentID, "discovery stage produced no output")
	}

	// Stage 2: refinement. Constrain the findings to one value per parameter.
	refined, err := e.completer.Complete(ctx, []llm.Message{
		llm.System(e.lib.RefinePrompt),
		llm.User(fmt.Sprintf("This is the text:\n%s\n\n", firstResponse)),
		llm.User(fmt.Sprintf("These are the requested parameters:\n%s", paramList)),
	})
	if err != nil {
		zap.L().Warn("extraction: refine call failed",
			zap.String("document", documentID),
			zap.Error(err),
		)
		results := e.NotFoundResults(documentID, "refine stage failed")
		e.attachExplanations(results, firstResponse)
		return results
	}

	results := e.parseRefined(documentID, refined)
	e.attachExplanations(results, firstResponse)
	return results
}

func (e *Engine) attachExplanations(results []model.ExtractionResult, explanation string) {
	if !e.keepExplanations {
		return
	}
	for i := range results {
		results[i].RawExplanation = explanation
	}
}

// parameterList renders the requested parameters one per line with their
// descriptions.
func (e *Engine) parameterList() string {
	var b strings.Builder
	for _, p := range e.params {
		b.WriteString("- ")
		b.WriteString(p.Query())
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, limit int) string {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
