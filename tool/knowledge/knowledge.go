// Package knowledge exposes knowledge base retrieval as a tool. The backing
// retriever is injected via an interface so deployments can plug in a remote
// retrieval service or an in-process index.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/veramoney/chatmesh/tool"
)

const defaultRetrievalK = 4

// Chunk is one retrieved fragment with its source metadata.
type Chunk struct {
	Content        string  `json:"content"`
	DocumentTitle  string  `json:"document_title"`
	DocumentType   string  `json:"document_type"`
	PageNumber     int     `json:"page_number"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Retriever is the retrieval capability consumed by the tool.
type Retriever interface {
	Search(ctx context.Context, query, documentType string, k int) ([]Chunk, error)
}

// Options configure the knowledge tool.
type Options struct {
	Retriever  Retriever
	RetrievalK int
}

// Tool implements tool.Tool over a Retriever.
type Tool struct {
	opts Options
}

// New constructs the knowledge tool around a retriever.
func New(retriever Retriever, optFns ...func(o *Options)) *Tool {
	opts := Options{
		Retriever:  retriever,
		RetrievalK: defaultRetrievalK,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Tool{opts: opts}
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return tool.KnowledgeToolName }

// Description implements tool.Tool.
func (t *Tool) Description() string {
	return "Search the VeraMoney knowledge base for information about company history, Uruguayan fintech regulation, and banking regulation. Returns relevant document chunks with source citations."
}

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query for the knowledge base",
			},
			"document_type": map[string]any{
				"type":        "string",
				"description": "Optional document type filter",
			},
		},
		"required": []string{"query"},
	}
}

// Output is the JSON payload returned to the model.
type Output struct {
	Query        string  `json:"query"`
	Chunks       []Chunk `json:"chunks"`
	TotalResults int     `json:"total_results"`
}

// Invoke implements tool.Tool.
func (t *Tool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	if t.opts.Retriever == nil {
		return "", tool.NewError(t.Name(), tool.CodeUpstreamUnavailable,
			"knowledge base is not available")
	}

	query, _ := args["query"].(string)
	if query == "" {
		return "", tool.NewError(t.Name(), tool.CodeInvalidInput, "query is required")
	}
	documentType, _ := args["document_type"].(string)

	chunks, err := t.opts.Retriever.Search(ctx, query, documentType, t.opts.RetrievalK)
	if err != nil {
		return "", tool.AsError(t.Name(), err)
	}
	if chunks == nil {
		chunks = []Chunk{}
	}

	out := Output{
		Query:        query,
		Chunks:       chunks,
		TotalResults: len(chunks),
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", tool.WrapError(t.Name(), tool.CodeUpstreamUnavailable,
			fmt.Sprintf("encoding knowledge output for %q", query), err)
	}

	return string(data), nil
}
