package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletion(t *testing.T) {
	var gotPath, gotKey string
	var gotReq ChatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID: "cmpl-1",
			Choices: []Choice{
				{Message: Message{Role: "assistant", Content: "the CFR is 20%"}},
			},
			Usage: Usage{TotalTokens: 42},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, "gpt-4o-mini", WithAPIVersion("2024-02-01"))

	resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "what is the CFR?"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/openai/deployments/gpt-4o-mini/chat/completions?api-version=2024-02-01", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "what is the CFR?", gotReq.Messages[0].Content)
	assert.Equal(t, "the CFR is 20%", resp.Text())
}

func TestChatCompletionRetriesTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []Choice{{Message: Message{Content: "ok"}}},
		})
	}))
	defer srv.Close()

	client := NewClient("k", srv.URL, "gpt-4o-mini")

	resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.Equal(t, 2, attempts)
}

func TestChatCompletionNonRetryableStatus(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("bad-key", srv.URL, "gpt-4o-mini")

	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestResponseTextEmpty(t *testing.T) {
	assert.Equal(t, "", (&ChatCompletionResponse{}).Text())
	var nilResp *ChatCompletionResponse
	assert.Equal(t, "", nilResp.Text())
}

func TestEmbedOrdersByIndex(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		// Return data out of order; the client must reassemble by index.
		json.NewEncoder(w).Encode(embeddingResponse{Data: []embeddingDatum{
			{Index: 1, Embedding: []float32{0, 1}},
			{Index: 0, Embedding: []float32{1, 0}},
		}})
	}))
	defer srv.Close()

	client := NewClient("k", srv.URL, "gpt-4o-mini", WithEmbeddingDeployment("text-embedding-3-large"))

	vectors, err := client.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	assert.Equal(t, "/openai/deployments/text-embedding-3-large/embeddings", gotPath)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestEmbedMissingVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{Data: []embeddingDatum{
			{Index: 0, Embedding: []float32{1, 0}},
		}})
	}))
	defer srv.Close()

	client := NewClient("k", srv.URL, "gpt-4o-mini", WithEmbeddingDeployment("emb"))

	_, err := client.Embed(context.Background(), []string{"first", "second"})
	assert.Error(t, err)
}

func TestEmbedRequiresDeployment(t *testing.T) {
	client := NewClient("k", "http://unused", "gpt-4o-mini")
	_, err := client.Embed(context.Background(), []string{"text"})
	assert.Error(t, err)
}

func TestEmbedEmptyInput(t *testing.T) {
	client := NewClient("k", "http://unused", "gpt-4o-mini", WithEmbeddingDeployment("emb"))
	vectors, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}
