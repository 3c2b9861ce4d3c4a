package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veramoney/chatmesh/tool"
)

const snapshotPayload = `{
	"AAPL": {
		"latestTrade": {"p": 187.32, "t": 1724934600000000000},
		"prevDay": {"c": 185.00}
	}
}`

func newTestTool(serverURL string) *Tool {
	return New(func(o *Options) {
		o.APIKey = "key-id"
		o.APISecret = "secret"
		o.BaseURL = serverURL
		o.MaxAttempts = 1
	})
}

func TestStock_Invoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stocks/snapshots", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbols"))
		assert.Equal(t, "key-id", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		fmt.Fprint(w, snapshotPayload)
	}))
	defer srv.Close()

	// Ticker is normalized before the request.
	result, err := newTestTool(srv.URL).Invoke(context.Background(), map[string]any{"ticker": " aapl "})
	require.NoError(t, err)

	var out Output
	require.NoError(t, json.Unmarshal([]byte(result), &out))
	assert.Equal(t, "AAPL", out.Ticker)
	assert.InDelta(t, 187.32, out.Price, 0.001)
	assert.Equal(t, "USD", out.Currency)
	assert.Equal(t, "+2.32", out.Change)
	assert.Equal(t, "+1.25%", out.ChangePercent)
	assert.Equal(t, "2024-08-29T12:30:00Z", out.Timestamp)
}

func TestStock_MissingTickerIsInvalidInput(t *testing.T) {
	_, err := newTestTool("http://unused").Invoke(context.Background(), map[string]any{"ticker": "  "})

	var te *tool.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeInvalidInput, te.Code)
}

func TestStock_UnknownTickerIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	_, err := newTestTool(srv.URL).Invoke(context.Background(), map[string]any{"ticker": "ZZZZ"})

	var te *tool.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeNotFound, te.Code)
	assert.False(t, te.Retryable())
}

func TestStock_MissingPreviousCloseIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"AAPL": {"latestTrade": {"p": 187.32, "t": 0}, "prevDay": {}}}`)
	}))
	defer srv.Close()

	_, err := newTestTool(srv.URL).Invoke(context.Background(), map[string]any{"ticker": "AAPL"})

	var te *tool.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeNotFound, te.Code)
}

func TestStock_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestTool(srv.URL).Invoke(context.Background(), map[string]any{"ticker": "AAPL"})

	var te *tool.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeUpstreamUnavailable, te.Code)
	assert.True(t, te.Retryable())
}
