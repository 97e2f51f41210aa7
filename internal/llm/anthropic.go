package llm

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// anthropicCompleter implements ChatCompleter using the official
// anthropic-sdk-go. System messages map to the request's system blocks; the
// rest become the conversation turns.
type anthropicCompleter struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewAnthropicCompleter creates a ChatCompleter backed by the Anthropic API.
func NewAnthropicCompleter(apiKey, model string, maxTokens int) ChatCompleter {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &anthropicCompleter{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

func (a *anthropicCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: a.maxTokens,
	}

	for _, m := range messages {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, sdk.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(block))
		default:
			params.Messages = append(params.Messages, sdk.NewUserMessage(block))
		}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "llm: anthropic create message")
	}

	text := ""
	for _, b := range msg.Content {
		if b.Type == "text" {
			text += b.Text
		}
	}
	return text, nil
}
