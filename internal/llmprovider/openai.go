package llmprovider

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider wraps the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	apiKey string
}

// NewOpenAIProvider builds a provider bound to the given API key and model.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}
	return &OpenAIProvider{client: client, model: model, apiKey: apiKey}
}

func (p *OpenAIProvider) Name() string      { return "openai" }
func (p *OpenAIProvider) IsAvailable() bool { return p.apiKey != "" }

func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, opts Options) (string, TokenInfo, error) {
	if !p.IsAvailable() {
		return "", TokenInfo{}, errors.New("openai: api_error: provider not configured")
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", TokenInfo{}, err
	}
	if len(resp.Choices) == 0 {
		return "", TokenInfo{}, errors.New("openai: api_error: empty choices")
	}

	text := resp.Choices[0].Message.Content
	if isSoftError(text) {
		return "", TokenInfo{}, errors.New("openai: api_error: " + text)
	}

	return text, TokenInfo{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (p *OpenAIProvider) Stream(ctx context.Context, messages []Message, opts Options, handler func(StreamChunk) error) error {
	if !p.IsAvailable() {
		return errors.New("openai: api_error: provider not configured")
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return handler(StreamChunk{Done: true})
		}
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		content := resp.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		if err := handler(StreamChunk{Content: content}); err != nil {
			return err
		}
	}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// isSoftError implements spec §4.2 point 3: some providers return sentinel
// strings like "[Error] ..." instead of raising. We treat those as raised
// failures.
func isSoftError(text string) bool {
	if len(text) == 0 || text[0] != '[' {
		return false
	}
	for i := 1; i < len(text) && i < 200; i++ {
		if text[i] == ']' {
			return false
		}
		if i+5 < len(text) && text[i:i+5] == "Error" {
			return true
		}
	}
	return false
}
