package searchexec

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
)

// httpFetcher is the content-enrichment Fetcher, adapted directly from the
// teacher's tools/fetch.go html-to-text extraction.
type httpFetcher struct {
	client *http.Client
}

func newHTTPFetcher() *httpFetcher {
	return &httpFetcher{client: &http.Client{Timeout: 15 * time.Second}}
}

// FetchMultiple fetches every URL concurrently; a per-URL failure is
// swallowed and simply absent from the result map (enrichment is
// best-effort, spec §4.3).
func (f *httpFetcher) FetchMultiple(ctx context.Context, urls []string) map[string]string {
	out := make(map[string]string, len(urls))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			text, err := f.fetchOne(ctx, u)
			if err != nil || text == "" {
				return
			}
			mu.Lock()
			out[u] = text
			mu.Unlock()
		}(u)
	}
	wg.Wait()
	return out
}

func (f *httpFetcher) fetchOne(ctx context.Context, urlStr string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; DeepResearchBot/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	text := extractText(string(body))
	const maxLen = 10000
	if len(text) > maxLen {
		text = text[:maxLen] + "\n...[truncated]"
	}
	return text, nil
}

var whitespaceRE = regexp.MustCompile(`\s+`)
var tagStripRE = regexp.MustCompile(`<[^>]*>`)

func extractText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return cleanWhitespace(tagStripRE.ReplaceAllString(htmlContent, ""))
	}

	var text strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
			text.WriteString(" ")
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return cleanWhitespace(text.String())
}

func cleanWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}
