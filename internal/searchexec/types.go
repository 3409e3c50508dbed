// Package searchexec implements the search executor from spec §4.3: a
// provider-fallback, strategy-driven batch runner over search tasks, with
// best-effort content enrichment and a reversible-compression checkpoint to
// disk.
package searchexec

import (
	"context"
	"time"

	"deepresearch/internal/core"
)

// ProviderTag is the closed set of search provider identities.
type ProviderTag string

const (
	ProviderTavily     ProviderTag = "tavily"
	ProviderExa        ProviderTag = "exa"
	ProviderSerper     ProviderTag = "serper"
	ProviderBrave      ProviderTag = "brave"
	ProviderDuckDuckGo ProviderTag = "duckduckgo"
	ProviderSearXNG    ProviderTag = "searxng"
	ProviderModel      ProviderTag = "model"
	ProviderNone       ProviderTag = "none"
)

// Strategy is one of the three §4.3 parallel strategies.
type Strategy string

const (
	StrategyBatch  Strategy = "batch"
	StrategyRace   Strategy = "race"
	StrategyHybrid Strategy = "hybrid"
)

// Config bundles every enumerated dial from §4.3.
type Config struct {
	Primary                  ProviderTag
	FallbackChain            []ProviderTag
	MaxResults               int
	Timeout                  time.Duration
	ParallelSearches         int
	ParallelStrategy         Strategy
	URLsPerQuery             int
	QueriesFirstIteration    int
	QueriesFollowupIteration int
	MaxTotalQueries          int
	LogDir                   string
}

// DefaultConfig mirrors the teacher's single-provider defaults generalized
// to the full chain.
func DefaultConfig() Config {
	return Config{
		Primary:          ProviderBrave,
		FallbackChain:    []ProviderTag{ProviderBrave, ProviderDuckDuckGo, ProviderModel},
		MaxResults:       10,
		Timeout:          30 * time.Second,
		ParallelSearches: 3,
		ParallelStrategy: StrategyBatch,
		URLsPerQuery:     4,
		MaxTotalQueries:  40,
		LogDir:           "logs",
	}
}

// ModelCaller is the narrow LLM surface the "model" provider needs: ask a
// question, get text back. Satisfied by llmprovider.MultiClient.Generate
// partially applied, or any stand-in in tests.
type ModelCaller interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// searchProvider is the internal per-backend contract. Each concrete
// provider in providers.go implements this; Executor never talks to an
// external SDK directly.
type searchProvider interface {
	Tag() ProviderTag
	Search(ctx context.Context, query, researchGoal string, maxResults int) (core.SearchResultBody, error)
}

// Fetcher performs best-effort enrichment HTTP fetches. Implemented by
// httpFetcher in enrich.go; narrowed to an interface so tests can stub it.
type Fetcher interface {
	FetchMultiple(ctx context.Context, urls []string) map[string]string
}
