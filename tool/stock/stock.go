// Package stock exposes stock price snapshots as a tool backed by an
// Alpaca-style market data upstream.
package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/veramoney/chatmesh/tool"
)

const (
	defaultBaseURL       = "https://data.alpaca.markets/v2"
	nanosecondsPerSecond = 1_000_000_000
)

// Options configure the stock tool.
type Options struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Client    *http.Client
	// MaxAttempts bounds retries of transient upstream failures.
	MaxAttempts int
}

// Tool implements tool.Tool against the market data upstream.
type Tool struct {
	opts Options
}

// New constructs the stock tool. Credentials default to the
// CHATMESH_ALPACA_API_KEY / CHATMESH_ALPACA_API_SECRET environment variables.
func New(optFns ...func(o *Options)) *Tool {
	opts := Options{
		APIKey:      os.Getenv("CHATMESH_ALPACA_API_KEY"),
		APISecret:   os.Getenv("CHATMESH_ALPACA_API_SECRET"),
		BaseURL:     defaultBaseURL,
		MaxAttempts: 3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Client == nil {
		opts.Client = tool.SharedHTTPClient()
	}
	return &Tool{opts: opts}
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return tool.StockToolName }

// Description implements tool.Tool.
func (t *Tool) Description() string {
	return "Get current stock price for a ticker symbol. Returns price in USD, change from previous close, and timestamp."
}

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ticker": map[string]any{
				"type":        "string",
				"description": "Stock ticker symbol, e.g. AAPL",
			},
		},
		"required": []string{"ticker"},
	}
}

// snapshot mirrors the subset of the upstream payload we consume.
type snapshot struct {
	LatestTrade *struct {
		Price     float64 `json:"p"`
		Timestamp int64   `json:"t"`
	} `json:"latestTrade"`
	PrevDay map[string]float64 `json:"prevDay"`
}

// Output is the JSON payload returned to the model.
type Output struct {
	Ticker        string  `json:"ticker"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	Timestamp     string  `json:"timestamp"`
	Change        string  `json:"change"`
	ChangePercent string  `json:"change_percent"`
}

// Invoke implements tool.Tool.
func (t *Tool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	if t.opts.APIKey == "" || t.opts.APISecret == "" {
		return "", tool.NewError(t.Name(), tool.CodeUpstreamUnavailable,
			"stock tool is not configured")
	}

	ticker, _ := args["ticker"].(string)
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", tool.NewError(t.Name(), tool.CodeInvalidInput, "ticker is required")
	}

	return tool.WithRetry(ctx, t.Name(), t.opts.MaxAttempts, func(ctx context.Context) (string, error) {
		return t.fetch(ctx, ticker)
	})
}

func (t *Tool) fetch(ctx context.Context, ticker string) (string, error) {
	q := url.Values{}
	q.Set("symbols", ticker)

	reqURL := fmt.Sprintf("%s/stocks/snapshots?%s", t.opts.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", tool.WrapError(t.Name(), tool.CodeInvalidInput, "building request", err)
	}
	req.Header.Set("APCA-API-KEY-ID", t.opts.APIKey)
	req.Header.Set("APCA-API-SECRET-KEY", t.opts.APISecret)
	req.Header.Set("Accept", "application/json")

	resp, err := t.opts.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", tool.WrapError(t.Name(), tool.CodeUpstreamTimeout, "stock request timed out", err)
		}
		return "", tool.WrapError(t.Name(), tool.CodeUpstreamUnavailable, "stock service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", tool.NewError(t.Name(), tool.CodeUpstreamUnavailable,
			fmt.Sprintf("stock service error: %d", resp.StatusCode))
	}

	var payload map[string]snapshot
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", tool.WrapError(t.Name(), tool.CodeUpstreamUnavailable, "decoding stock response", err)
	}

	snap, ok := payload[ticker]
	if !ok || snap.LatestTrade == nil {
		return "", tool.NewError(t.Name(), tool.CodeNotFound,
			fmt.Sprintf("ticker %q not found", ticker))
	}

	previousClose, ok := snap.PrevDay["c"]
	if !ok || previousClose == 0 {
		return "", tool.NewError(t.Name(), tool.CodeNotFound,
			fmt.Sprintf("no previous close data for %q", ticker))
	}

	price := snap.LatestTrade.Price
	change := price - previousClose
	changePercent := (change / previousClose) * 100

	out := Output{
		Ticker:        ticker,
		Price:         price,
		Currency:      "USD",
		Timestamp:     formatTradeTime(snap.LatestTrade.Timestamp),
		Change:        formatSigned(change, ""),
		ChangePercent: formatSigned(changePercent, "%"),
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", tool.WrapError(t.Name(), tool.CodeUpstreamUnavailable, "encoding stock output", err)
	}

	return string(data), nil
}

// formatTradeTime converts the upstream nanosecond timestamp into RFC 3339.
func formatTradeTime(nanos int64) string {
	return time.Unix(nanos/nanosecondsPerSecond, nanos%nanosecondsPerSecond).
		UTC().Format("2006-01-02T15:04:05Z")
}

// formatSigned renders a delta with an explicit sign, e.g. "+1.25" / "-0.40%".
func formatSigned(v float64, suffix string) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f%s", v, suffix)
	}
	return fmt.Sprintf("%.2f%s", v, suffix)
}
