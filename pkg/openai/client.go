// Package openai provides a client for Azure OpenAI chat completions and
// embeddings.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultAPIVersion = "2024-02-01"

// Client defines the Azure OpenAI operations used by the pipeline.
type Client interface {
	// ChatCompletion sends role-tagged messages to a chat deployment and
	// returns the completion.
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
	// Embed returns one embedding vector per input string.
	Embed(ctx context.Context, input []string) ([][]float32, error)
}

// ChatCompletionRequest is the request body for a chat completion.
type ChatCompletionRequest struct {
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Message represents a single message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the parsed chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is a single completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Text returns the first choice's content, or "" when there are no choices.
func (r *ChatCompletionResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

type embeddingRequest struct {
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []embeddingDatum `json:"data"`
}

type embeddingDatum struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// Option configures the client.
type Option func(*httpClient)

// WithAPIVersion overrides the default API version.
func WithAPIVersion(version string) Option {
	return func(c *httpClient) {
		c.apiVersion = version
	}
}

// WithEmbeddingDeployment sets the deployment used by Embed.
func WithEmbeddingDeployment(name string) Option {
	return func(c *httpClient) {
		c.embeddingDeployment = name
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey              string
	endpoint            string
	apiVersion          string
	deployment          string
	embeddingDeployment string
	http                *http.Client
}

// NewClient creates an Azure OpenAI client for the given resource endpoint
// and chat deployment.
func NewClient(apiKey, endpoint, deployment string, opts ...Option) Client {
	c := &httpClient{
		apiKey:     apiKey,
		endpoint:   endpoint,
		apiVersion: defaultAPIVersion,
		deployment: deployment,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// postJSON executes a POST with exponential backoff retries on transient
// failures (429, 500, 502, 503). Returns the response body and status code.
func (c *httpClient) postJSON(ctx context.Context, url string, payload []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, 0, eris.Wrap(err, "openai: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "openai: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("openai: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) deploymentURL(deployment, operation string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		c.endpoint, deployment, operation, c.apiVersion)
}

func (c *httpClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "openai: marshal request")
	}

	body, statusCode, err := c.postJSON(ctx, c.deploymentURL(c.deployment, "chat/completions"), payload)
	if err != nil {
		return nil, eris.Wrap(err, "openai: chat completion request failed")
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("openai: chat completion unexpected status %d: %s", statusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "openai: unmarshal chat completion response")
	}

	return &result, nil
}

func (c *httpClient) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if c.embeddingDeployment == "" {
		return nil, eris.New("openai: embedding deployment not configured")
	}
	if len(input) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embeddingRequest{Input: input})
	if err != nil {
		return nil, eris.Wrap(err, "openai: marshal embedding request")
	}

	body, statusCode, err := c.postJSON(ctx, c.deploymentURL(c.embeddingDeployment, "embeddings"), payload)
	if err != nil {
		return nil, eris.Wrap(err, "openai: embedding request failed")
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("openai: embedding unexpected status %d: %s", statusCode, string(body))
	}

	var result embeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "openai: unmarshal embedding response")
	}

	// The API may return data out of order; index them explicitly.
	vectors := make([][]float32, len(input))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, eris.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, eris.Errorf("openai: missing embedding for input %d", i)
		}
	}

	return vectors, nil
}
