package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veramoney/chatmesh/tool"
)

// stubRetriever returns canned chunks.
type stubRetriever struct {
	chunks []Chunk
	err    error

	gotQuery string
	gotType  string
	gotK     int
}

func (s *stubRetriever) Search(_ context.Context, query, documentType string, k int) ([]Chunk, error) {
	s.gotQuery, s.gotType, s.gotK = query, documentType, k
	return s.chunks, s.err
}

func TestKnowledge_Invoke(t *testing.T) {
	retriever := &stubRetriever{chunks: []Chunk{{
		Content:        "VeraMoney was founded in 2015.",
		DocumentTitle:  "Historia de VeraMoney",
		DocumentType:   "company_history",
		PageNumber:     3,
		RelevanceScore: 0.92,
	}}}

	kt := New(retriever)
	result, err := kt.Invoke(context.Background(), map[string]any{
		"query":         "when was VeraMoney founded",
		"document_type": "company_history",
	})
	require.NoError(t, err)

	assert.Equal(t, "when was VeraMoney founded", retriever.gotQuery)
	assert.Equal(t, "company_history", retriever.gotType)
	assert.Equal(t, 4, retriever.gotK, "default retrieval depth")

	var out Output
	require.NoError(t, json.Unmarshal([]byte(result), &out))
	assert.Equal(t, 1, out.TotalResults)
	require.Len(t, out.Chunks, 1)
	assert.Equal(t, "Historia de VeraMoney", out.Chunks[0].DocumentTitle)
}

func TestKnowledge_EmptyResultsAreValid(t *testing.T) {
	kt := New(&stubRetriever{})

	result, err := kt.Invoke(context.Background(), map[string]any{"query": "unrelated topic"})
	require.NoError(t, err)

	var out Output
	require.NoError(t, json.Unmarshal([]byte(result), &out))
	assert.Equal(t, 0, out.TotalResults)
	assert.NotNil(t, out.Chunks)
}

func TestKnowledge_MissingQueryIsInvalidInput(t *testing.T) {
	kt := New(&stubRetriever{})

	_, err := kt.Invoke(context.Background(), map[string]any{})

	var te *tool.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeInvalidInput, te.Code)
}

func TestKnowledge_RetrieverErrorClassified(t *testing.T) {
	kt := New(&stubRetriever{err: errors.New("connection refused")})

	_, err := kt.Invoke(context.Background(), map[string]any{"query": "anything"})

	var te *tool.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeUpstreamUnavailable, te.Code)
}

func TestHTTPRetriever_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "fintech caps", req.Query)
		assert.Equal(t, 4, req.K)

		fmt.Fprint(w, `{"chunks": [{"content": "The cap is 5000 UI.", "document_title": "Regulacion Fintech", "page_number": 12, "relevance_score": 0.88}]}`)
	}))
	defer srv.Close()

	retriever := NewHTTPRetriever(srv.URL, srv.Client())
	chunks, err := retriever.Search(context.Background(), "fintech caps", "", 4)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Regulacion Fintech", chunks[0].DocumentTitle)
	assert.Equal(t, 12, chunks[0].PageNumber)
}

func TestHTTPRetriever_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	retriever := NewHTTPRetriever(srv.URL, srv.Client())
	_, err := retriever.Search(context.Background(), "anything", "", 4)

	var te *tool.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tool.CodeUpstreamUnavailable, te.Code)
}
