// Package config loads the immutable process configuration from the
// environment. It is constructed once at composition root, and the
// resulting *Config pointer is shared with every subsystem that needs it.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the deep research pipeline.
type Config struct {
	// LLM provider credentials and models. The fallback-chain order is set
	// where the chain is built (cmd/deepresearch), not by field order.
	OpenAIAPIKey     string
	OpenAIModel      string
	AnthropicAPIKey  string
	AnthropicModel   string
	GeminiAPIKey     string
	GeminiModel      string
	OpenRouterAPIKey string
	OpenRouterModel  string

	// Search provider credentials.
	TavilyAPIKey  string
	ExaAPIKey     string
	SerperAPIKey  string
	BraveAPIKey   string
	SearXNGURL    string
	CohereAPIKey  string

	// Budgets and timeouts.
	RequestTimeout        time.Duration
	SandboxComputeTimeout time.Duration
	SandboxMaxChartFail   int
	DailyBudgetUSD        float64
	MonthlyBudgetUSD      float64

	// Search config dials (§4.3).
	SearchMaxResults           int
	SearchTimeoutSeconds       int
	SearchParallelSearches     int
	SearchParallelStrategy     string
	SearchURLsPerQuery         int
	QueriesFirstIteration      int
	QueriesFollowupIteration   int
	SearchMaxTotalQueries      int

	// Orchestrator dials (§4.11, §3 invariants).
	MaxIterations int
	MaxRetries    int

	// Feature flags (Design Note §9 — enumerated, never hot-reloaded).
	System1EnableCache          bool
	System1CacheTTL             time.Duration
	System1CacheMaxSize         int
	RoutingComplexityAnalysis   bool
	RoutingSmartRouting         bool
	ContextAppendOnly           bool
	ContextCompressKeepLast     int

	// Paths.
	LogDir string

	Verbose bool
}

// Load reads configuration from environment and defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   getEnvOrDefault("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		GeminiAPIKey:     firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")),
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-pro"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:  getEnvOrDefault("OPENROUTER_MODEL", "alibaba/tongyi-deepresearch-30b-a3b"),

		TavilyAPIKey: os.Getenv("TAVILY_API_KEY"),
		ExaAPIKey:    os.Getenv("EXA_API_KEY"),
		SerperAPIKey: os.Getenv("SERPER_API_KEY"),
		BraveAPIKey:  os.Getenv("BRAVE_API_KEY"),
		SearXNGURL:   os.Getenv("SEARXNG_URL"),
		CohereAPIKey: os.Getenv("COHERE_API_KEY"),

		RequestTimeout:        5 * time.Minute,
		SandboxComputeTimeout: getEnvDurationSeconds("SANDBOX_COMPUTE_TIMEOUT", 60),
		SandboxMaxChartFail:   getEnvInt("SANDBOX_MAX_CHART_FAILURES", 2),
		DailyBudgetUSD:        getEnvFloat("DAILY_BUDGET", 0),
		MonthlyBudgetUSD:      getEnvFloat("MONTHLY_BUDGET", 0),

		SearchMaxResults:         10,
		SearchTimeoutSeconds:     30,
		SearchParallelSearches:   3,
		SearchParallelStrategy:   "batch",
		SearchURLsPerQuery:       3,
		QueriesFirstIteration:    5,
		QueriesFollowupIteration: 3,
		SearchMaxTotalQueries:    12,

		MaxIterations: 3,
		MaxRetries:    2,

		System1EnableCache:        true,
		System1CacheTTL:           10 * time.Minute,
		System1CacheMaxSize:       256,
		RoutingComplexityAnalysis: true,
		RoutingSmartRouting:       true,
		ContextAppendOnly:         true,
		ContextCompressKeepLast:   5,

		LogDir: getEnvOrDefault("RESEARCH_LOG_DIR", "./research_output"),

		Verbose: os.Getenv("RESEARCH_VERBOSE") == "true",
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDurationSeconds(key string, defSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defSeconds)) * time.Second
}
