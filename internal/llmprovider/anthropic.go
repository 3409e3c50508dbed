package llmprovider

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider wraps the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	apiKey string
}

// NewAnthropicProvider builds a provider bound to the given API key and model.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
		apiKey: apiKey,
	}
}

func (p *AnthropicProvider) Name() string      { return "anthropic" }
func (p *AnthropicProvider) IsAvailable() bool { return p.apiKey != "" }

// resolveMaxTokens applies the spec §4.2 floor: Anthropic requires an
// explicit max_tokens, so a caller-supplied 0 falls back to
// AnthropicDefaultMaxTokens rather than being passed through.
func resolveMaxTokens(opts Options) int64 {
	if opts.MaxTokens > 0 {
		return int64(opts.MaxTokens)
	}
	return AnthropicDefaultMaxTokens
}

func (p *AnthropicProvider) Generate(ctx context.Context, messages []Message, opts Options) (string, TokenInfo, error) {
	if !p.IsAvailable() {
		return "", TokenInfo{}, errors.New("anthropic: api_error: provider not configured")
	}

	system, turns := splitSystem(messages)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   resolveMaxTokens(opts),
		Messages:    turns,
		Temperature: anthropic.Float(opts.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", TokenInfo{}, err
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return text, TokenInfo{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}

func (p *AnthropicProvider) Stream(ctx context.Context, messages []Message, opts Options, handler func(StreamChunk) error) error {
	if !p.IsAvailable() {
		return errors.New("anthropic: api_error: provider not configured")
	}

	system, turns := splitSystem(messages)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   resolveMaxTokens(opts),
		Messages:    turns,
		Temperature: anthropic.Float(opts.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	for stream.Next() {
		event := stream.Current()
		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if delta.Delta.Text != "" {
				if err := handler(StreamChunk{Content: delta.Delta.Text}); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return err
	}
	return handler(StreamChunk{Done: true})
}

// splitSystem pulls the leading "system" message (if any) out of the turn
// list — Anthropic takes system as a top-level param, not a message role.
func splitSystem(messages []Message) (string, []anthropic.MessageParam) {
	var system string
	turns := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" && system == "" {
			system = m.Content
			continue
		}
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			turns = append(turns, anthropic.NewAssistantMessage(block))
		} else {
			turns = append(turns, anthropic.NewUserMessage(block))
		}
	}
	return system, turns
}
