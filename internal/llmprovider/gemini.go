package llmprovider

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// GeminiProvider wraps Google's unified genai SDK against the Gemini API
// backend.
type GeminiProvider struct {
	client *genai.Client
	model  string
	apiKey string
}

// NewGeminiProvider builds a provider bound to the given API key and model.
// Client construction is deferred to first use since genai.NewClient takes a
// context and can fail, and a provider with no key must still be
// constructible (IsAvailable reports it unusable instead).
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{model: model, apiKey: apiKey}
}

func (p *GeminiProvider) Name() string      { return "gemini" }
func (p *GeminiProvider) IsAvailable() bool { return p.apiKey != "" }

func (p *GeminiProvider) ensureClient(ctx context.Context) error {
	if p.client != nil {
		return nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return err
	}
	p.client = client
	return nil
}

func toGeminiContents(messages []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == "assistant" || m.Role == "model" {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}

func (p *GeminiProvider) Generate(ctx context.Context, messages []Message, opts Options) (string, TokenInfo, error) {
	if !p.IsAvailable() {
		return "", TokenInfo{}, errors.New("gemini: api_error: provider not configured")
	}
	if err := p.ensureClient(ctx); err != nil {
		return "", TokenInfo{}, err
	}

	temp := float32(opts.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if opts.MaxTokens > 0 {
		maxTokens := int32(opts.MaxTokens)
		cfg.MaxOutputTokens = maxTokens
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, toGeminiContents(messages), cfg)
	if err != nil {
		return "", TokenInfo{}, err
	}

	text := result.Text()
	info := TokenInfo{Estimated: true, TotalTokens: estimateTokens(text)}
	if result.UsageMetadata != nil {
		info = TokenInfo{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}

	return text, info, nil
}

func (p *GeminiProvider) Stream(ctx context.Context, messages []Message, opts Options, handler func(StreamChunk) error) error {
	if !p.IsAvailable() {
		return errors.New("gemini: api_error: provider not configured")
	}
	if err := p.ensureClient(ctx); err != nil {
		return err
	}

	temp := float32(opts.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	for chunk, err := range p.client.Models.GenerateContentStream(ctx, p.model, toGeminiContents(messages), cfg) {
		if err != nil {
			return err
		}
		text := chunk.Text()
		if text != "" {
			if herr := handler(StreamChunk{Content: text}); herr != nil {
				return herr
			}
		}
	}
	return handler(StreamChunk{Done: true})
}
