// Package llmprovider implements the multi-provider LLM client from spec
// §4.2: a uniform generate/stream surface over N providers, with fallback
// and token accounting.
package llmprovider

import "context"

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// TokenInfo is returned on every successful call. When a provider cannot
// give exact counts it MAY estimate by whitespace tokenisation — such
// providers set Estimated=true.
type TokenInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Estimated        bool
}

// Options configures one generate/stream call.
type Options struct {
	Temperature float64
	MaxTokens   int // 0 means "let the provider decide", except Anthropic (see AnthropicDefaultMaxTokens)
}

// AnthropicDefaultMaxTokens is the floor applied when a caller doesn't
// supply MaxTokens and the active provider is Anthropic, which requires an
// explicit value (spec §4.2).
const AnthropicDefaultMaxTokens = 8192

// StreamChunk is one piece of a streamed response.
type StreamChunk struct {
	Content string
	Done    bool
}

// Provider is implemented by every concrete LLM backend.
type Provider interface {
	Name() string
	IsAvailable() bool
	Generate(ctx context.Context, messages []Message, opts Options) (string, TokenInfo, error)
	Stream(ctx context.Context, messages []Message, opts Options, handler func(StreamChunk) error) error
}

// estimateTokens provides the whitespace-tokenisation fallback some
// providers use when an API doesn't return exact usage.
func estimateTokens(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		isSpace := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if !isSpace && !inWord {
			count++
			inWord = true
		} else if isSpace {
			inWord = false
		}
	}
	return count
}
