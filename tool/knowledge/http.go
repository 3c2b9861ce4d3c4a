package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/veramoney/chatmesh/tool"
)

// HTTPRetriever talks to a remote retrieval service exposing a POST /search
// endpoint.
type HTTPRetriever struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRetriever builds a retriever against the given base URL. A nil
// client selects the shared pooled client.
func NewHTTPRetriever(baseURL string, client *http.Client) *HTTPRetriever {
	if client == nil {
		client = tool.SharedHTTPClient()
	}
	return &HTTPRetriever{baseURL: baseURL, client: client}
}

type searchRequest struct {
	Query        string `json:"query"`
	DocumentType string `json:"document_type,omitempty"`
	K            int    `json:"k"`
}

type searchResponse struct {
	Chunks []Chunk `json:"chunks"`
}

// Search implements Retriever.
func (r *HTTPRetriever) Search(ctx context.Context, query, documentType string, k int) ([]Chunk, error) {
	body, err := json.Marshal(searchRequest{Query: query, DocumentType: documentType, K: k})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, tool.WrapError(tool.KnowledgeToolName, tool.CodeUpstreamTimeout, "knowledge search timed out", err)
		}
		return nil, tool.WrapError(tool.KnowledgeToolName, tool.CodeUpstreamUnavailable, "knowledge service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, tool.NewError(tool.KnowledgeToolName, tool.CodeUpstreamUnavailable,
			fmt.Sprintf("knowledge service error: %d", resp.StatusCode))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, tool.WrapError(tool.KnowledgeToolName, tool.CodeUpstreamUnavailable, "decoding search response", err)
	}

	return payload.Chunks, nil
}
