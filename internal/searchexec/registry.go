package searchexec

import (
	"time"

	"deepresearch/internal/config"
)

// buildProviders constructs one searchProvider for every provider tag,
// keyed by tag, whether or not its credential is set, mirroring the
// teacher's one-tool-per-struct layout.
func buildProviders(cfg *config.Config, timeout time.Duration, modelCaller ModelCaller) map[ProviderTag]searchProvider {
	client := newHTTPClient(timeout)
	providers := map[ProviderTag]searchProvider{
		ProviderBrave:      &braveProvider{apiKey: cfg.BraveAPIKey, client: client},
		ProviderTavily:     &tavilyProvider{apiKey: cfg.TavilyAPIKey, client: client},
		ProviderExa:        &exaProvider{apiKey: cfg.ExaAPIKey, client: client},
		ProviderSerper:     &serperProvider{apiKey: cfg.SerperAPIKey, client: client},
		ProviderDuckDuckGo: &duckDuckGoProvider{client: client},
		ProviderSearXNG:    &searXNGProvider{baseURL: cfg.SearXNGURL, client: client},
		ProviderModel:      &modelProvider{caller: modelCaller},
	}
	return providers
}
