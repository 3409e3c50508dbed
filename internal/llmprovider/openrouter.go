package llmprovider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenRouterProvider is a hand-rolled HTTP client against OpenRouter's
// OpenAI-compatible chat completions endpoint, adapted from the teacher's
// single-provider client: no official OpenRouter SDK exists in the pack, so
// this keeps the teacher's http.Client + SSE-scanner shape generalized to
// the Provider interface.
type OpenRouterProvider struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

const openRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"

// NewOpenRouterProvider builds a provider bound to the given API key and
// model.
func NewOpenRouterProvider(apiKey, model string) *OpenRouterProvider {
	return &OpenRouterProvider{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    openRouterBaseURL,
	}
}

func (p *OpenRouterProvider) Name() string      { return "openrouter" }
func (p *OpenRouterProvider) IsAvailable() bool { return p.apiKey != "" }

type orMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type orRequest struct {
	Model       string      `json:"model"`
	Messages    []orMessage `json:"messages"`
	Temperature float64     `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Stream      bool        `json:"stream,omitempty"`
}

type orChoice struct {
	Message orMessage `json:"message"`
	Delta   orMessage `json:"delta"`
}

type orUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type orResponse struct {
	Choices []orChoice `json:"choices"`
	Usage   orUsage    `json:"usage"`
}

func toORMessages(messages []Message) []orMessage {
	out := make([]orMessage, len(messages))
	for i, m := range messages {
		out[i] = orMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func (p *OpenRouterProvider) newRequest(ctx context.Context, body orRequest) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	return req, nil
}

func (p *OpenRouterProvider) Generate(ctx context.Context, messages []Message, opts Options) (string, TokenInfo, error) {
	if !p.IsAvailable() {
		return "", TokenInfo{}, errors.New("openrouter: api_error: provider not configured")
	}

	req, err := p.newRequest(ctx, orRequest{
		Model:       p.model,
		Messages:    toORMessages(messages),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", TokenInfo{}, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", TokenInfo{}, fmt.Errorf("openrouter: network_error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", TokenInfo{}, fmt.Errorf("openrouter: network_error: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", TokenInfo{}, fmt.Errorf("openrouter: api_error: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed orResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", TokenInfo{}, fmt.Errorf("openrouter: api_error: decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", TokenInfo{}, errors.New("openrouter: api_error: empty choices")
	}

	text := parsed.Choices[0].Message.Content
	if isSoftError(text) {
		return "", TokenInfo{}, errors.New("openrouter: api_error: " + text)
	}

	return text, TokenInfo{
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}, nil
}

func (p *OpenRouterProvider) Stream(ctx context.Context, messages []Message, opts Options, handler func(StreamChunk) error) error {
	if !p.IsAvailable() {
		return errors.New("openrouter: api_error: provider not configured")
	}

	req, err := p.newRequest(ctx, orRequest{
		Model:       p.model,
		Messages:    toORMessages(messages),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openrouter: network_error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openrouter: api_error: status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk orResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		if err := handler(StreamChunk{Content: content}); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("openrouter: network_error: %w", err)
	}
	return handler(StreamChunk{Done: true})
}
