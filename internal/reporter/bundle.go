package reporter

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"deepresearch/internal/core"
)

// BundleMetadata is the metadata.json sidecar written alongside a report
// bundle (spec §4.9 persistence).
type BundleMetadata struct {
	Query          string         `json:"query"`
	Mode           core.Mode      `json:"mode"`
	Model          string         `json:"model,omitempty"`
	GeneratedAt    time.Time      `json:"generatedAt"`
	DurationMs     int64          `json:"durationMs"`
	TokensUsed     int            `json:"tokensUsed"`
	CitationCounts map[int]int    `json:"citationCounts,omitempty"`
	FigureTitles   []string       `json:"figureTitles,omitempty"`
	StageLog       []string       `json:"stageLog,omitempty"`
}

var embeddedImageRE = regexp.MustCompile(`!\[([^\]]*)\]\(data:image/png;base64,([A-Za-z0-9+/=]+)\)`)

// SaveReportBundle writes the report and its figures to
// {logDir}/reports/{traceId8}_{timestamp}/: report.md with inline base64
// images replaced by relative figures/figure_N.png paths, the figure PNGs
// themselves, and a metadata.json sidecar (spec §4.9).
func SaveReportBundle(logDir string, req *core.Request, fullReport string, model string, duration time.Duration, tokensUsed int, stats core.CitationStats, stageLog []string) (string, error) {
	dirName := fmt.Sprintf("%s_%d", req.TraceID8(), time.Now().Unix())
	bundleDir := filepath.Join(logDir, "reports", dirName)
	figuresDir := filepath.Join(bundleDir, "figures")
	if err := os.MkdirAll(figuresDir, 0o755); err != nil {
		return "", fmt.Errorf("reporter: creating bundle directory: %w", err)
	}

	body, figureTitles, err := extractAndSaveFigures(fullReport, figuresDir)
	if err != nil {
		return "", err
	}

	reportPath := filepath.Join(bundleDir, "report.md")
	if err := os.WriteFile(reportPath, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("reporter: writing report.md: %w", err)
	}

	meta := BundleMetadata{
		Query:          req.Query,
		Mode:           req.Mode,
		Model:          model,
		GeneratedAt:    time.Now(),
		DurationMs:     duration.Milliseconds(),
		TokensUsed:     tokensUsed,
		CitationCounts: stats.CitationDistribution,
		FigureTitles:   figureTitles,
		StageLog:       stageLog,
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("reporter: marshaling metadata: %w", err)
	}
	metaPath := filepath.Join(bundleDir, "metadata.json")
	if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
		return "", fmt.Errorf("reporter: writing metadata.json: %w", err)
	}

	return bundleDir, nil
}

// extractAndSaveFigures replaces every inline base64 PNG image in body with
// a relative path under figures/, writing each decoded PNG to disk in
// encounter order.
func extractAndSaveFigures(body, figuresDir string) (string, []string, error) {
	var titles []string
	n := 0

	var decodeErr error
	replaced := embeddedImageRE.ReplaceAllStringFunc(body, func(match string) string {
		sub := embeddedImageRE.FindStringSubmatch(match)
		alt, encoded := sub[1], sub[2]
		n++
		fileName := fmt.Sprintf("figure_%d.png", n)

		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			decodeErr = fmt.Errorf("reporter: decoding figure %d: %w", n, err)
			return match
		}
		if err := os.WriteFile(filepath.Join(figuresDir, fileName), data, 0o644); err != nil {
			decodeErr = fmt.Errorf("reporter: writing figure %d: %w", n, err)
			return match
		}

		titles = append(titles, alt)
		return fmt.Sprintf("![%s](figures/%s)", alt, fileName)
	})
	if decodeErr != nil {
		return "", nil, decodeErr
	}

	return replaced, titles, nil
}
