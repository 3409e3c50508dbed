package llmprovider

import (
	"context"
	"errors"
	"fmt"

	"deepresearch/internal/classify"
)

// MultiClient is the multi-provider LLM client from spec §4.2: an ordered
// provider chain, walked on failure, classifying each error to decide
// whether to advance or give up.
//
// Grounded on the shape of the teacher's single-provider ChatClient
// interface, generalized to a chain — the fallback/soft-error/advance
// logic itself is spec.md §4.2, not teacher code.
type MultiClient struct {
	providers []Provider
	last      string
}

// NewMultiClient builds a client over the given providers in fallback order.
// Unavailable providers (no API key configured) are skipped entirely.
func NewMultiClient(providers ...Provider) *MultiClient {
	available := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil && p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &MultiClient{providers: available}
}

// LastProvider returns the name of the provider that produced the most
// recent successful call, or "" if none has succeeded yet.
func (m *MultiClient) LastProvider() string { return m.last }

// Generate walks the provider chain in order. A retryable-category failure
// (network or llm, per internal/classify) advances to the next provider; a
// non-retryable failure is returned immediately since retrying elsewhere
// won't change a business-logic rejection.
func (m *MultiClient) Generate(ctx context.Context, messages []Message, opts Options) (string, TokenInfo, error) {
	if len(m.providers) == 0 {
		return "", TokenInfo{}, errors.New("llmprovider: no providers configured")
	}

	var lastErr error
	for _, p := range m.providers {
		callOpts := opts
		if p.Name() == "anthropic" && callOpts.MaxTokens == 0 {
			callOpts.MaxTokens = AnthropicDefaultMaxTokens
		}

		text, info, err := p.Generate(ctx, messages, callOpts)
		if err == nil && isSoftError(text) {
			err = errors.New("api_error: soft error response: " + text)
		}
		if err == nil {
			m.last = p.Name()
			return text, info, nil
		}

		lastErr = fmt.Errorf("%s: %w", p.Name(), err)
		if !classify.RetryableErr(err) {
			return "", TokenInfo{}, lastErr
		}
	}
	return "", TokenInfo{}, fmt.Errorf("llmprovider: all providers exhausted: %w", lastErr)
}

// Stream walks the provider chain the same way Generate does, but a provider
// only "commits" once it has emitted its first non-empty chunk — after that
// point a mid-stream failure is NOT retried on the next provider, since the
// caller may already have consumed partial output.
func (m *MultiClient) Stream(ctx context.Context, messages []Message, opts Options, handler func(StreamChunk) error) error {
	if len(m.providers) == 0 {
		return errors.New("llmprovider: no providers configured")
	}

	var lastErr error
	for _, p := range m.providers {
		callOpts := opts
		if p.Name() == "anthropic" && callOpts.MaxTokens == 0 {
			callOpts.MaxTokens = AnthropicDefaultMaxTokens
		}

		committed := false
		err := p.Stream(ctx, messages, callOpts, func(chunk StreamChunk) error {
			if chunk.Content != "" {
				committed = true
			}
			return handler(chunk)
		})
		if err == nil {
			m.last = p.Name()
			return nil
		}
		if committed {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}

		lastErr = fmt.Errorf("%s: %w", p.Name(), err)
		if !classify.RetryableErr(err) {
			return lastErr
		}
	}
	return fmt.Errorf("llmprovider: all providers exhausted: %w", lastErr)
}
