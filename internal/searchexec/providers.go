package searchexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"deepresearch/internal/core"
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// --- Brave (grounded directly on teacher's tools/search.go) ---

type braveProvider struct {
	apiKey string
	client *http.Client
}

func (p *braveProvider) Tag() ProviderTag { return ProviderBrave }

func (p *braveProvider) Search(ctx context.Context, query, _ string, maxResults int) (core.SearchResultBody, error) {
	if p.apiKey == "" {
		return core.SearchResultBody{}, fmt.Errorf("brave: not configured")
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.search.brave.com/res/v1/web/search?"+params.Encode(), nil)
	if err != nil {
		return core.SearchResultBody{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return core.SearchResultBody{}, fmt.Errorf("brave: network_error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return core.SearchResultBody{}, fmt.Errorf("brave: api_error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.SearchResultBody{}, fmt.Errorf("brave: decoding response: %w", err)
	}

	results := parsed.Web.Results
	sources := make([]core.Source, 0, len(results))
	var summary strings.Builder
	for i, r := range results {
		sources = append(sources, core.Source{URL: r.URL, Title: r.Title, Relevance: relevanceByRank(i, len(results))})
		fmt.Fprintf(&summary, "%d. %s\n   %s\n", i+1, r.Title, r.Description)
	}
	return core.SearchResultBody{Summary: summary.String(), Sources: sources, Provider: string(p.Tag())}, nil
}

// --- Tavily ---

type tavilyProvider struct {
	apiKey string
	client *http.Client
}

func (p *tavilyProvider) Tag() ProviderTag { return ProviderTavily }

func (p *tavilyProvider) Search(ctx context.Context, query, _ string, maxResults int) (core.SearchResultBody, error) {
	if p.apiKey == "" {
		return core.SearchResultBody{}, fmt.Errorf("tavily: not configured")
	}
	payload, _ := json.Marshal(map[string]any{
		"api_key":     p.apiKey,
		"query":       query,
		"max_results": maxResults,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.tavily.com/search", bytes.NewReader(payload))
	if err != nil {
		return core.SearchResultBody{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return core.SearchResultBody{}, fmt.Errorf("tavily: network_error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return core.SearchResultBody{}, fmt.Errorf("tavily: api_error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.SearchResultBody{}, fmt.Errorf("tavily: decoding response: %w", err)
	}

	sources := make([]core.Source, 0, len(parsed.Results))
	var summary strings.Builder
	for i, r := range parsed.Results {
		sources = append(sources, core.Source{URL: r.URL, Title: r.Title, Relevance: relevanceByRank(i, len(parsed.Results))})
		fmt.Fprintf(&summary, "%d. %s\n   %s\n", i+1, r.Title, r.Content)
	}
	return core.SearchResultBody{Summary: summary.String(), Sources: sources, Provider: string(p.Tag())}, nil
}

// --- Exa (spec: infers searchType from goal keywords) ---

type exaProvider struct {
	apiKey string
	client *http.Client
}

func (p *exaProvider) Tag() ProviderTag { return ProviderExa }

func inferExaSearchType(researchGoal string) string {
	goal := strings.ToLower(researchGoal)
	switch {
	case strings.Contains(goal, "code") || strings.Contains(goal, "implementation"):
		return "code"
	case strings.Contains(goal, "paper") || strings.Contains(goal, "research") || strings.Contains(goal, "study"):
		return "research"
	case strings.Contains(goal, "news") || strings.Contains(goal, "latest") || strings.Contains(goal, "announcement"):
		return "news"
	default:
		return "general"
	}
}

func (p *exaProvider) Search(ctx context.Context, query, researchGoal string, maxResults int) (core.SearchResultBody, error) {
	if p.apiKey == "" {
		return core.SearchResultBody{}, fmt.Errorf("exa: not configured")
	}
	searchType := inferExaSearchType(researchGoal)
	payload, _ := json.Marshal(map[string]any{
		"query":      query,
		"numResults": maxResults,
		"type":       searchType,
		"contents":   map[string]any{"text": true},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.exa.ai/search", bytes.NewReader(payload))
	if err != nil {
		return core.SearchResultBody{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return core.SearchResultBody{}, fmt.Errorf("exa: network_error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return core.SearchResultBody{}, fmt.Errorf("exa: api_error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Results []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
			Text  string `json:"text"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.SearchResultBody{}, fmt.Errorf("exa: decoding response: %w", err)
	}

	sources := make([]core.Source, 0, len(parsed.Results))
	var summary strings.Builder
	for i, r := range parsed.Results {
		sources = append(sources, core.Source{URL: r.URL, Title: r.Title, Relevance: relevanceByRank(i, len(parsed.Results))})
		fmt.Fprintf(&summary, "%d. %s\n   %s\n", i+1, r.Title, r.Text)
	}
	return core.SearchResultBody{Summary: summary.String(), Sources: sources, Provider: string(p.Tag())}, nil
}

// --- Serper ---

type serperProvider struct {
	apiKey string
	client *http.Client
}

func (p *serperProvider) Tag() ProviderTag { return ProviderSerper }

func (p *serperProvider) Search(ctx context.Context, query, _ string, maxResults int) (core.SearchResultBody, error) {
	if p.apiKey == "" {
		return core.SearchResultBody{}, fmt.Errorf("serper: not configured")
	}
	payload, _ := json.Marshal(map[string]any{"q": query, "num": maxResults})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://google.serper.dev/search", bytes.NewReader(payload))
	if err != nil {
		return core.SearchResultBody{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return core.SearchResultBody{}, fmt.Errorf("serper: network_error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return core.SearchResultBody{}, fmt.Errorf("serper: api_error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.SearchResultBody{}, fmt.Errorf("serper: decoding response: %w", err)
	}

	sources := make([]core.Source, 0, len(parsed.Organic))
	var summary strings.Builder
	for i, r := range parsed.Organic {
		sources = append(sources, core.Source{URL: r.Link, Title: r.Title, Relevance: relevanceByRank(i, len(parsed.Organic))})
		fmt.Fprintf(&summary, "%d. %s\n   %s\n", i+1, r.Title, r.Snippet)
	}
	return core.SearchResultBody{Summary: summary.String(), Sources: sources, Provider: string(p.Tag())}, nil
}

// --- DuckDuckGo (instant-answer endpoint, no key required) ---

type duckDuckGoProvider struct {
	client *http.Client
}

func (p *duckDuckGoProvider) Tag() ProviderTag { return ProviderDuckDuckGo }

func (p *duckDuckGoProvider) Search(ctx context.Context, query, _ string, maxResults int) (core.SearchResultBody, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.duckduckgo.com/?"+params.Encode(), nil)
	if err != nil {
		return core.SearchResultBody{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return core.SearchResultBody{}, fmt.Errorf("duckduckgo: network_error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return core.SearchResultBody{}, fmt.Errorf("duckduckgo: api_error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		AbstractText string `json:"AbstractText"`
		AbstractURL  string `json:"AbstractURL"`
		Heading      string `json:"Heading"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.SearchResultBody{}, fmt.Errorf("duckduckgo: decoding response: %w", err)
	}

	var sources []core.Source
	var summary strings.Builder
	if parsed.AbstractText != "" {
		sources = append(sources, core.Source{URL: parsed.AbstractURL, Title: parsed.Heading, Relevance: 1.0})
		fmt.Fprintf(&summary, "1. %s\n   %s\n", parsed.Heading, parsed.AbstractText)
	}
	for i, t := range parsed.RelatedTopics {
		if len(sources) >= maxResults {
			break
		}
		sources = append(sources, core.Source{URL: t.FirstURL, Title: t.Text, Relevance: relevanceByRank(i+1, len(parsed.RelatedTopics)+1)})
		fmt.Fprintf(&summary, "%d. %s\n", len(sources), t.Text)
	}
	return core.SearchResultBody{Summary: summary.String(), Sources: sources, Provider: string(p.Tag())}, nil
}

// --- SearXNG (self-hosted metasearch) ---

type searXNGProvider struct {
	baseURL string
	client  *http.Client
}

func (p *searXNGProvider) Tag() ProviderTag { return ProviderSearXNG }

func (p *searXNGProvider) Search(ctx context.Context, query, _ string, maxResults int) (core.SearchResultBody, error) {
	if p.baseURL == "" {
		return core.SearchResultBody{}, fmt.Errorf("searxng: not configured")
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.baseURL, "/")+"/search?"+params.Encode(), nil)
	if err != nil {
		return core.SearchResultBody{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return core.SearchResultBody{}, fmt.Errorf("searxng: network_error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return core.SearchResultBody{}, fmt.Errorf("searxng: api_error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.SearchResultBody{}, fmt.Errorf("searxng: decoding response: %w", err)
	}

	if len(parsed.Results) > maxResults {
		parsed.Results = parsed.Results[:maxResults]
	}
	sources := make([]core.Source, 0, len(parsed.Results))
	var summary strings.Builder
	for i, r := range parsed.Results {
		sources = append(sources, core.Source{URL: r.URL, Title: r.Title, Relevance: relevanceByRank(i, len(parsed.Results))})
		fmt.Fprintf(&summary, "%d. %s\n   %s\n", i+1, r.Title, r.Content)
	}
	return core.SearchResultBody{Summary: summary.String(), Sources: sources, Provider: string(p.Tag())}, nil
}

// --- model (spec §4.3: LLM-as-search-provider, returns one synthetic source) ---

type modelProvider struct {
	caller ModelCaller
}

func (p *modelProvider) Tag() ProviderTag { return ProviderModel }

func (p *modelProvider) Search(ctx context.Context, query, researchGoal string, _ int) (core.SearchResultBody, error) {
	if p.caller == nil {
		return core.SearchResultBody{}, fmt.Errorf("model: not configured")
	}
	prompt := fmt.Sprintf("Research goal: %s\n\nUsing your own knowledge, answer this search query as thoroughly as you can:\n%s", researchGoal, query)
	text, err := p.caller.Generate(ctx, prompt)
	if err != nil {
		return core.SearchResultBody{}, fmt.Errorf("model: %w", err)
	}
	return core.SearchResultBody{
		Summary: text,
		Sources: []core.Source{{Title: "AI Knowledge Base", URL: "", Relevance: 0.5}},
		Provider: string(p.Tag()),
	}, nil
}

func relevanceByRank(rank, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(rank)/float64(total)
}
