// Package rag implements the retrieval side of the RAG pipeline: an
// in-memory vector index over section-level chunks, ranked by cosine
// similarity of service-provided embeddings.
package rag

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/epiparam/epiextract/internal/llm"
)

// ScoredChunk is one retrieval hit.
type ScoredChunk struct {
	DocumentID string
	SectionIdx int
	Text       string
	Score      float64
}

type storedChunk struct {
	documentID string
	sectionIdx int
	text       string
	vector     []float32
}

// Index is an in-memory vector index. Its lifetime is one pipeline run:
// populate with Add, then query read-only. Reset clears all vectors so a
// reused index never leaks a prior run's documents into new queries.
type Index struct {
	embedder llm.Embedder
	chunks   []storedChunk
}

// New creates an empty index over the given embedder.
func New(embedder llm.Embedder) *Index {
	return &Index{embedder: embedder}
}

// Add embeds the chunks of one document and stores them. Chunk order is
// preserved and used for tie-breaking at query time.
func (ix *Index) Add(ctx context.Context, documentID string, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := ix.embedder.Embed(ctx, chunks)
	if err != nil {
		return eris.Wrapf(err, "rag: embed chunks for %s", documentID)
	}
	if len(vectors) != len(chunks) {
		return eris.Errorf("rag: embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i, text := range chunks {
		ix.chunks = append(ix.chunks, storedChunk{
			documentID: documentID,
			sectionIdx: i,
			text:       text,
			vector:     vectors[i],
		})
	}

	zap.L().Debug("rag: document indexed",
		zap.String("document", documentID),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

// Query returns up to k chunks across all documents, ordered by descending
// similarity, ties broken by insertion order.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]ScoredChunk, error) {
	return ix.query(ctx, "", text, k)
}

// QueryDocument restricts retrieval to the chunks of one document.
func (ix *Index) QueryDocument(ctx context.Context, documentID, text string, k int) ([]ScoredChunk, error) {
	return ix.query(ctx, documentID, text, k)
}

func (ix *Index) query(ctx context.Context, documentID, text string, k int) ([]ScoredChunk, error) {
	if k <= 0 || len(ix.chunks) == 0 {
		return nil, nil
	}

	vectors, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, eris.Wrap(err, "rag: embed query")
	}
	queryVec := vectors[0]

	var hits []ScoredChunk
	for _, c := range ix.chunks {
		if documentID != "" && c.documentID != documentID {
			continue
		}
		hits = append(hits, ScoredChunk{
			DocumentID: c.documentID,
			SectionIdx: c.sectionIdx,
			Text:       c.text,
			Score:      cosine(queryVec, c.vector),
		})
	}

	// Stable sort keeps original chunk order for equal scores.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Reset clears all stored vectors.
func (ix *Index) Reset() {
	ix.chunks = nil
}

// Len returns the number of stored chunks.
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// cosine computes cosine similarity; zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
