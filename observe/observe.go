// Package observe collects evaluation samples from live conversations.
// Recording is strictly fire-and-forget: a slow or failing sink must never
// delay or fail a chat turn.
package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/veramoney/chatmesh/tool"
)

// Dataset names used to group recorded items.
const (
	DatasetOpeningMessages = "USER_OPENING_MESSAGES"
	DatasetStockQueries    = "STOCK_QUERIES"
)

// Item is a single evaluation sample destined for a dataset.
type Item struct {
	Dataset  string         `json:"dataset"`
	Input    map[string]any `json:"input"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Sink delivers dataset items to a collection backend.
type Sink interface {
	Send(ctx context.Context, item Item) error
	Close() error
}

// NoOpSink discards every item. Used when no sink URL is configured.
type NoOpSink struct{}

// NewNoOpSink creates a sink that drops all items.
func NewNoOpSink() *NoOpSink {
	return &NoOpSink{}
}

// Send implements the Sink interface.
func (s *NoOpSink) Send(_ context.Context, _ Item) error {
	return nil
}

// Close implements the Sink interface.
func (s *NoOpSink) Close() error {
	return nil
}

// HTTPSinkOptions configures an HTTPSink.
type HTTPSinkOptions struct {
	// BaseURL is the collection endpoint. Items are posted to {BaseURL}/items.
	BaseURL string
	// APIKey is sent as an X-API-Key header when set.
	APIKey string
	// Client is the HTTP client to use. Defaults to the shared pooled client.
	Client *http.Client
	// Timeout bounds a single delivery. Defaults to 5 seconds.
	Timeout time.Duration
}

// HTTPSink posts dataset items to an HTTP collection endpoint.
type HTTPSink struct {
	baseURL string
	apiKey  string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPSink creates a sink that delivers items over HTTP.
func NewHTTPSink(opts HTTPSinkOptions) *HTTPSink {
	client := opts.Client
	if client == nil {
		client = tool.SharedHTTPClient()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPSink{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		client:  client,
		timeout: timeout,
	}
}

// Send implements the Sink interface.
func (s *HTTPSink) Send(ctx context.Context, item Item) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode dataset item: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/items", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create dataset request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver dataset item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("deliver dataset item: status %d", resp.StatusCode)
	}

	return nil
}

// Close implements the Sink interface.
func (s *HTTPSink) Close() error {
	return nil
}
