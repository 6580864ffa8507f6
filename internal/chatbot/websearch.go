package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dianihealth/carebridge/internal/core"
	"github.com/dianihealth/carebridge/internal/platform/logger"
)

// SerperClient issues one search against the Serper API.
type SerperClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

var _ core.SearchProvider = (*SerperClient)(nil)

func NewSerperClient(apiKey, endpoint string) (*SerperClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("search API key not set")
	}
	if endpoint == "" {
		endpoint = "https://google.serper.dev/search"
	}
	return &SerperClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 20 * time.Second},
	}, nil
}

type serperRequest struct {
	Q   string `json:"q"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []core.SearchResult `json:"organic"`
}

func (c *SerperClient) Search(ctx context.Context, query, gl, hl string, limit int) ([]core.SearchResult, error) {
	payload, err := json.Marshal(serperRequest{Q: query, GL: gl, HL: hl, Num: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call search endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out serperResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if limit > 0 && len(out.Organic) > limit {
		out.Organic = out.Organic[:limit]
	}
	return out.Organic, nil
}

const (
	resultsPerQuery = 5
	maxWebResults   = 10
	searchDelay     = 300 * time.Millisecond
)

// WebSearcher fans the user's question out as paraphrased queries, merges the
// hits and renders a bounded web context. A single query under-covers
// time-sensitive questions; the paraphrase ensemble plus URL dedup is a cheap
// recall boost without a ranking model.
type WebSearcher struct {
	provider core.SearchProvider
	delay    time.Duration
	now      func() time.Time
	log      *logger.Logger
}

func NewWebSearcher(provider core.SearchProvider, log *logger.Logger) *WebSearcher {
	return &WebSearcher{provider: provider, delay: searchDelay, now: time.Now, log: log}
}

// BuildWebContext returns the rendered search context, or "" when no provider
// is configured or every call fails. Individual call failures are swallowed;
// partial results still count.
func (w *WebSearcher) BuildWebContext(ctx context.Context, query, language string) string {
	if w.provider == nil || strings.TrimSpace(query) == "" {
		return ""
	}

	gl, hl := localeHints(language)
	queries := []string{
		query,
		query + " " + w.now().Format("2006-01-02"),
		query + " updated information",
	}

	var merged []core.SearchResult
	for i, q := range queries {
		// Sequential with a short pause between calls to stay under the
		// upstream rate limit.
		if i > 0 {
			select {
			case <-ctx.Done():
				return renderWebResults(dedupeByLink(merged, maxWebResults))
			case <-time.After(w.delay):
			}
		}
		results, err := w.provider.Search(ctx, q, gl, hl, resultsPerQuery)
		if err != nil {
			w.log.Warn("web search call failed", "query", q, "error", err)
			continue
		}
		merged = append(merged, results...)
	}

	return renderWebResults(dedupeByLink(merged, maxWebResults))
}

// dedupeByLink keeps the first occurrence of each link, preserving arrival
// order, truncated to max entries.
func dedupeByLink(results []core.SearchResult, max int) []core.SearchResult {
	seen := make(map[string]bool, len(results))
	var out []core.SearchResult
	for _, r := range results {
		if seen[r.Link] {
			continue
		}
		seen[r.Link] = true
		out = append(out, r)
		if len(out) == max {
			break
		}
	}
	return out
}

func renderWebResults(results []core.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	entries := make([]string, 0, len(results))
	for i, r := range results {
		entries = append(entries, fmt.Sprintf("(%d) %s\n%s\n%s", i+1, r.Title, r.Snippet, r.Link))
	}
	return strings.Join(entries, "\n\n")
}

func localeHints(language string) (gl, hl string) {
	switch language {
	case "es":
		return "es", "es"
	case "sw":
		return "ke", "sw"
	default:
		return "us", "en"
	}
}
