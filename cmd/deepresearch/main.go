// Command deepresearch runs one deep-research request end to end: it reads
// the query from argv, wires the provider/search/sandbox stack from
// environment config, drives internal/orchestrator, and prints streaming
// progress plus the final report to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"deepresearch/internal/config"
	"deepresearch/internal/core"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/obslog"
	"deepresearch/internal/orchestrator"
	"deepresearch/internal/sandbox"
	"deepresearch/internal/searchexec"
)

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	mode := flag.String("mode", string(core.ModeDeepResearch), "processing mode")
	pythonPath := flag.String("python", "", "python3 interpreter for the compute sandbox (empty disables charts)")
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: deepresearch [-mode deepResearch] [-python python3] <query>")
		os.Exit(1)
	}

	cfg := config.Load()
	logger := obslog.New(cfg.Verbose)
	defer logger.Sync()

	llm := buildLLMClient(cfg)

	executor := searchexec.NewExecutor(cfg, modelCallerFunc(func(ctx context.Context, prompt string) (string, error) {
		text, _, err := llm.Generate(ctx, []llmprovider.Message{{Role: "user", Content: prompt}}, llmprovider.Options{Temperature: 0.2})
		return text, err
	}))

	var sandboxSvc sandbox.Service
	if *pythonPath != "" {
		sandboxSvc = sandbox.NewProcessService(*pythonPath)
	}

	orch := orchestrator.New(cfg, llm, executor, sandboxSvc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		yellow.Fprintln(os.Stderr, "\ninterrupted, cancelling research...")
		cancel()
	}()

	req := core.NewRequest(query, core.Mode(*mode))
	cyan.Printf("Researching: %s\n", req.Query)
	dim.Printf("trace %s\n", req.TraceID8())

	resp, err := orch.Process(ctx, req, printEvent)
	if err != nil {
		red.Fprintf(os.Stderr, "research failed: %v\n", err)
		os.Exit(1)
	}

	green.Println("\n--- Final Report ---")
	fmt.Println(resp.Result)
}

// modelCallerFunc adapts a plain function to searchexec.ModelCaller.
type modelCallerFunc func(ctx context.Context, prompt string) (string, error)

func (f modelCallerFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func buildLLMClient(cfg *config.Config) *llmprovider.MultiClient {
	return llmprovider.NewMultiClient(
		llmprovider.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel),
		llmprovider.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel),
		llmprovider.NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel),
		llmprovider.NewOpenRouterProvider(cfg.OpenRouterAPIKey, cfg.OpenRouterModel),
	)
}

func printEvent(ev core.ResearchEvent) {
	switch ev.Type {
	case core.EventProgress:
		dim.Printf("[%s] %v\n", ev.Step, ev.Data)
	case core.EventMessage:
		fmt.Printf("[%s] %v\n", ev.Step, ev.Data)
	case core.EventSearchResult:
		cyan.Printf("[%s] searched: %v\n", ev.Step, ev.Data)
	case core.EventError:
		red.Fprintf(os.Stderr, "[%s] error: %v\n", ev.Step, ev.Data)
	case core.EventFinalReport:
		// printed by main after Process returns; skip here to avoid
		// double-printing the full report body.
	default:
		fmt.Printf("[%s] %v\n", ev.Step, ev.Data)
	}
}
