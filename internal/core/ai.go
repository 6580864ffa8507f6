package core

import (
	"context"
	"fmt"
)

// Message is one role-tagged turn sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatProvider generates a reply from a system prompt plus the full
// conversation history.
type ChatProvider interface {
	Complete(ctx context.Context, systemPrompt string, history []Message) (string, error)
}

// SearchResult is one organic web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// SearchProvider issues one web search query with locale hints.
type SearchProvider interface {
	Search(ctx context.Context, query, gl, hl string, limit int) ([]SearchResult, error)
}

// UpstreamError reports a non-2xx answer from an external API. Handlers
// forward StatusCode to the client.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}
