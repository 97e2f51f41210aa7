package rag

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns canned vectors per input text.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, input []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(input))
	for i, text := range input {
		v, ok := f.vectors[text]
		if !ok {
			v = []float32{0, 0, 0}
		}
		out[i] = v
	}
	return out, nil
}

func newTestIndex(t *testing.T) (*Index, *fakeEmbedder) {
	t.Helper()
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"mortality section":   {1, 0, 0},
		"methods section":     {0, 1, 0},
		"background section":  {0, 0, 1},
		"mixed section":       {1, 1, 0},
		"case fatality query": {1, 0, 0},
	}}
	return New(emb), emb
}

func TestIndexQueryRanksBySimilarity(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, "a.pdf", []string{
		"background section", "mixed section", "mortality section",
	}))
	assert.Equal(t, 3, ix.Len())

	hits, err := ix.Query(ctx, "case fatality query", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Exact match first, then the partially aligned chunk.
	assert.Equal(t, "mortality section", hits[0].Text)
	assert.Equal(t, "mixed section", hits[1].Text)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestIndexQueryCapsAtK(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, "a.pdf", []string{
		"background section", "methods section", "mortality section",
	}))

	hits, err := ix.Query(ctx, "case fatality query", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	hits, err = ix.Query(ctx, "case fatality query", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexQueryDocumentFilters(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, "a.pdf", []string{"mortality section"}))
	require.NoError(t, ix.Add(ctx, "b.pdf", []string{"mixed section"}))

	hits, err := ix.QueryDocument(ctx, "b.pdf", "case fatality query", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b.pdf", hits[0].DocumentID)
	assert.Equal(t, "mixed section", hits[0].Text)
}

func TestIndexReset(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, "a.pdf", []string{"mortality section"}))
	require.Equal(t, 1, ix.Len())

	ix.Reset()
	assert.Equal(t, 0, ix.Len())

	hits, err := ix.Query(ctx, "case fatality query", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexAddEmbedderError(t *testing.T) {
	emb := &fakeEmbedder{err: eris.New("service down")}
	ix := New(emb)

	err := ix.Add(context.Background(), "a.pdf", []string{"chunk"})
	assert.Error(t, err)
	assert.Equal(t, 0, ix.Len())
}

func TestIndexAddNoChunks(t *testing.T) {
	ix, emb := newTestIndex(t)
	require.NoError(t, ix.Add(context.Background(), "a.pdf", nil))
	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, 0, emb.calls)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 0.0001)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 0.0001)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 0.0001)
	// Zero vectors and mismatched lengths score 0.
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 0}))
}
