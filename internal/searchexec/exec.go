package searchexec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"deepresearch/internal/config"
	"deepresearch/internal/core"
)

// Executor runs search tasks against the configured provider chain using
// the selected parallel strategy (spec §4.3).
//
// Grounded on the teacher's agents/search.go executeSearches loop (one
// provider, sequential for-range) generalized to the full config surface;
// the per-batch task fan-out uses golang.org/x/sync/errgroup (pulled into
// the pack by rcliao-briefly and ivanvanderbyl-adk-go), the per-query race
// across providers uses sync.WaitGroup, and it uses
// golang.org/x/time/rate for per-provider throttling (pulled into the pack
// by sells-group-research-cli and tareqmamari-cloud-logs-mcp).
type Executor struct {
	cfg       Config
	providers map[ProviderTag]searchProvider
	limiters  map[ProviderTag]*rate.Limiter
	fetcher   Fetcher
}

// NewExecutor builds an executor from process config. modelCaller may be nil
// if the "model" provider is never used in the fallback chain.
func NewExecutor(appCfg *config.Config, modelCaller ModelCaller) *Executor {
	cfg := Config{
		Primary:                  ProviderBrave,
		FallbackChain:            []ProviderTag{ProviderBrave, ProviderDuckDuckGo, ProviderModel},
		MaxResults:               appCfg.SearchMaxResults,
		Timeout:                  time.Duration(appCfg.SearchTimeoutSeconds) * time.Second,
		ParallelSearches:         appCfg.SearchParallelSearches,
		ParallelStrategy:         Strategy(appCfg.SearchParallelStrategy),
		URLsPerQuery:             appCfg.SearchURLsPerQuery,
		QueriesFirstIteration:    appCfg.QueriesFirstIteration,
		QueriesFollowupIteration: appCfg.QueriesFollowupIteration,
		MaxTotalQueries:          appCfg.SearchMaxTotalQueries,
		LogDir:                   appCfg.LogDir,
	}

	providers := buildProviders(appCfg, cfg.Timeout, modelCaller)
	limiters := make(map[ProviderTag]*rate.Limiter, len(providers))
	for tag := range providers {
		limiters[tag] = rate.NewLimiter(rate.Limit(5), 5)
	}

	return &Executor{
		cfg:       cfg,
		providers: providers,
		limiters:  limiters,
		fetcher:   newHTTPFetcher(),
	}
}

// emptyResultPlaceholder implements the §4.3 empty-result policy.
func emptyResultPlaceholder(query, goal string, priority int) core.SearchResult {
	return core.SearchResult{
		Query:    query,
		Goal:     goal,
		Priority: priority,
		Result: core.SearchResultBody{
			Summary:  "[No search results…]",
			Sources:  nil,
			Provider: string(ProviderNone),
			Timestamp: time.Now(),
		},
	}
}

// tryProvider wraps one provider call in the configured hard timeout.
func (e *Executor) tryProvider(ctx context.Context, tag ProviderTag, query, goal string) (core.SearchResultBody, error) {
	provider, ok := e.providers[tag]
	if !ok {
		return core.SearchResultBody{}, fmt.Errorf("searchexec: unknown provider %q", tag)
	}
	if limiter := e.limiters[tag]; limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return core.SearchResultBody{}, err
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	body, err := provider.Search(timeoutCtx, query, goal, e.cfg.MaxResults)
	if err != nil {
		return core.SearchResultBody{}, err
	}
	body.Provider = string(tag)
	body.Timestamp = time.Now()
	return body, nil
}

// fallbackChain returns the chain to walk for one task: configured chain if
// non-empty, else just the primary.
func (e *Executor) fallbackChain() []ProviderTag {
	if len(e.cfg.FallbackChain) > 0 {
		return e.cfg.FallbackChain
	}
	return []ProviderTag{e.cfg.Primary}
}

// searchOneSequential walks the fallback chain in order, returning the first
// provider's body that yields at least one source.
func (e *Executor) searchOneSequential(ctx context.Context, query, goal string) core.SearchResultBody {
	for _, tag := range e.fallbackChain() {
		body, err := e.tryProvider(ctx, tag, query, goal)
		if err != nil {
			continue
		}
		if len(body.Sources) > 0 {
			return body
		}
	}
	return core.SearchResultBody{Summary: "[No search results…]", Provider: string(ProviderNone)}
}

// searchOneRace launches every provider in the fallback chain concurrently;
// the first to return a non-empty source set wins and the rest are
// cancelled.
func (e *Executor) searchOneRace(ctx context.Context, query, goal string) core.SearchResultBody {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		body core.SearchResultBody
		ok   bool
	}
	results := make(chan outcome, len(e.fallbackChain()))
	var wg sync.WaitGroup

	for _, tag := range e.fallbackChain() {
		wg.Add(1)
		go func(tag ProviderTag) {
			defer wg.Done()
			body, err := e.tryProvider(raceCtx, tag, query, goal)
			if err != nil || len(body.Sources) == 0 {
				results <- outcome{ok: false}
				return
			}
			results <- outcome{body: body, ok: true}
		}(tag)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.ok {
			cancel()
			return res.body
		}
	}
	return core.SearchResultBody{Summary: "[No search results…]", Provider: string(ProviderNone)}
}

func (e *Executor) searchOne(ctx context.Context, query, goal string) core.SearchResultBody {
	switch e.cfg.ParallelStrategy {
	case StrategyRace, StrategyHybrid:
		return e.searchOneRace(ctx, query, goal)
	default:
		return e.searchOneSequential(ctx, query, goal)
	}
}

// ExecuteSearchTasks partitions tasks into batches of ParallelSearches and
// runs each batch concurrently, per §4.3. Per-task failures degrade to the
// empty-result placeholder; they never abort the batch.
func (e *Executor) ExecuteSearchTasks(ctx context.Context, tasks []core.SearchTask) []core.SearchResult {
	results := make([]core.SearchResult, len(tasks))
	batchSize := e.cfg.ParallelSearches
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(tasks); start += batchSize {
		end := start + batchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		batch := tasks[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for i, task := range batch {
			idx := start + i
			task := task
			g.Go(func() error {
				body := e.searchOne(gctx, task.Query, task.ResearchGoal)
				results[idx] = core.SearchResult{
					Query:    task.Query,
					Goal:     task.ResearchGoal,
					Priority: task.Priority,
					Result:   body,
				}
				return nil
			})
		}
		// errgroup's goroutines never return an error (failures degrade to
		// placeholders inside searchOne), so Wait only blocks for completion.
		_ = g.Wait()
	}

	for i, task := range tasks {
		if results[i].Result.Provider == "" {
			results[i] = emptyResultPlaceholder(task.Query, task.ResearchGoal, task.Priority)
		}
	}

	return results
}

// EnrichTopURLs picks the top URLsPerQuery sources by relevance per result
// and fills in FullContent via best-effort fetch (spec §4.3 content
// enrichment). Fetch failures are swallowed.
func (e *Executor) EnrichTopURLs(ctx context.Context, results []core.SearchResult) {
	for i := range results {
		sources := results[i].Result.Sources
		if len(sources) == 0 {
			continue
		}
		top := topByRelevance(sources, e.cfg.URLsPerQuery)
		urls := make([]string, 0, len(top))
		for _, s := range top {
			if s.URL != "" {
				urls = append(urls, s.URL)
			}
		}
		if len(urls) == 0 {
			continue
		}
		fetched := e.fetcher.FetchMultiple(ctx, urls)
		results[i].Result.FullContent = joinFetched(urls, fetched)
	}
}

func topByRelevance(sources []core.Source, n int) []core.Source {
	sorted := make([]core.Source, len(sources))
	copy(sorted, sources)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Relevance > sorted[j-1].Relevance; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func joinFetched(urls []string, fetched map[string]string) string {
	var out string
	for _, u := range urls {
		text, ok := fetched[u]
		if !ok || text == "" {
			continue
		}
		if out != "" {
			out += "\n\n---\n\n"
		}
		out += text
	}
	return out
}
