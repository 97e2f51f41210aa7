// Package llm abstracts the chat-completion service behind a narrow
// capability interface so the extraction protocol depends only on the
// ability to turn messages into text.
package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/epiparam/epiextract/internal/config"
	"github.com/epiparam/epiextract/pkg/openai"
)

// Role constants for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged chat message.
type Message struct {
	Role    string
	Content string
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ChatCompleter turns an ordered sequence of role-tagged messages into plain
// response text.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Embedder turns texts into fixed-length numeric vectors.
type Embedder interface {
	Embed(ctx context.Context, input []string) ([][]float32, error)
}

// NewCompleter builds the configured chat provider, wrapped with rate
// limiting when requests_per_minute is set.
func NewCompleter(cfg *config.Config) (ChatCompleter, error) {
	var completer ChatCompleter
	switch cfg.LLM.Provider {
	case "azure", "":
		if cfg.OpenAI.Key == "" || cfg.OpenAI.Endpoint == "" {
			return nil, eris.New("llm: azure provider requires openai.key and openai.endpoint")
		}
		client := openai.NewClient(cfg.OpenAI.Key, cfg.OpenAI.Endpoint, cfg.OpenAI.Deployment,
			openai.WithAPIVersion(cfg.OpenAI.APIVersion),
		)
		completer = NewAzureCompleter(client)
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("llm: anthropic provider requires anthropic.key")
		}
		completer = NewAnthropicCompleter(cfg.Anthropic.Key, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}

	if cfg.LLM.RequestsPerMinute > 0 {
		completer = NewRateLimited(completer, cfg.LLM.RequestsPerMinute)
	}
	return completer, nil
}

// NewEmbedder builds the embedding client from config.
func NewEmbedder(cfg *config.Config) (Embedder, error) {
	if cfg.OpenAI.Key == "" || cfg.OpenAI.Endpoint == "" {
		return nil, eris.New("llm: embeddings require openai.key and openai.endpoint")
	}
	return openai.NewClient(cfg.OpenAI.Key, cfg.OpenAI.Endpoint, cfg.OpenAI.Deployment,
		openai.WithAPIVersion(cfg.OpenAI.APIVersion),
		openai.WithEmbeddingDeployment(cfg.OpenAI.EmbeddingDeployment),
	), nil
}

// azureCompleter adapts the Azure OpenAI client to ChatCompleter.
type azureCompleter struct {
	client openai.Client
}

// NewAzureCompleter wraps an Azure OpenAI client.
func NewAzureCompleter(client openai.Client) ChatCompleter {
	return &azureCompleter{client: client}
}

func (a *azureCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Messages: make([]openai.Message, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.Message{Role: m.Role, Content: m.Content}
	}

	resp, err := a.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "llm: azure chat completion")
	}
	return resp.Text(), nil
}
