package observe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferExpectedTools(t *testing.T) {
	tests := []struct {
		message  string
		expected []string
	}{
		{"What's the weather in Montevideo?", []string{"weather"}},
		{"cuál es el clima hoy", []string{"weather"}},
		{"AAPL stock price please", []string{"stock"}},
		{"cuál es el precio de la acción", []string{"stock"}},
		{"Tell me about VeraMoney's history", []string{"knowledge"}},
		{"fintech regulation limits", []string{"knowledge"}},
		{"weather in Punta del Este and TSLA price", []string{"weather", "stock"}},
		{"hello there", []string{"unknown"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, InferExpectedTools(tt.message), "message: %s", tt.message)
	}
}

// captureSink records items and optionally fails.
type captureSink struct {
	mu    sync.Mutex
	items []Item
	err   error
}

func (s *captureSink) Send(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.items = append(s.items, item)
	return nil
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) all() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

func TestDatasetRecorder_RecordOpeningMessage(t *testing.T) {
	sink := &captureSink{}
	recorder := NewDatasetRecorder(sink, "gpt-4o", nil)

	recorder.RecordOpeningMessage("session-1", "What's the weather in Montevideo?")
	require.NoError(t, recorder.Close())

	items := sink.all()
	require.Len(t, items, 1)
	assert.Equal(t, DatasetOpeningMessages, items[0].Dataset)
	assert.Equal(t, "What's the weather in Montevideo?", items[0].Input["message"])
	assert.Equal(t, "session-1", items[0].Input["session_id"])
	assert.Equal(t, "gpt-4o", items[0].Metadata["model"])
	assert.Equal(t, []string{"weather"}, items[0].Metadata["expected_tools"])
}

func TestDatasetRecorder_RecordStockQuery(t *testing.T) {
	sink := &captureSink{}
	recorder := NewDatasetRecorder(sink, "gpt-4o", nil)

	recorder.RecordStockQuery("session-1", "how is AAPL doing", "AAPL")
	recorder.RecordStockQuery("session-1", "what about that other one", "")
	require.NoError(t, recorder.Close())

	items := sink.all()
	require.Len(t, items, 2)
	assert.Equal(t, DatasetStockQueries, items[0].Dataset)

	tickers := []string{items[0].Input["ticker"].(string), items[1].Input["ticker"].(string)}
	assert.Contains(t, tickers, "AAPL")
	assert.Contains(t, tickers, "UNKNOWN")
}

func TestDatasetRecorder_SinkFailureIsSwallowed(t *testing.T) {
	sink := &captureSink{err: errors.New("sink down")}
	recorder := NewDatasetRecorder(sink, "gpt-4o", nil)

	// Must not panic or block the caller.
	recorder.RecordOpeningMessage("session-1", "hello")
	require.NoError(t, recorder.Close())
	assert.Empty(t, sink.all())
}

func TestHTTPSink_Send(t *testing.T) {
	var got Item
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/items", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewHTTPSink(HTTPSinkOptions{BaseURL: srv.URL, APIKey: "secret", Client: srv.Client()})
	err := sink.Send(context.Background(), Item{
		Dataset: DatasetOpeningMessages,
		Input:   map[string]any{"message": "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, DatasetOpeningMessages, got.Dataset)
}

func TestHTTPSink_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := NewHTTPSink(HTTPSinkOptions{BaseURL: srv.URL, Client: srv.Client()})
	err := sink.Send(context.Background(), Item{Dataset: DatasetStockQueries})
	assert.Error(t, err)
}
