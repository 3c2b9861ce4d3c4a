package middleware

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/tool"
)

// citationIndicators are phrases (English and Spanish) whose presence counts
// as citing a source.
var citationIndicators = []string{
	"source",
	"fuente",
	"according to",
	"según",
	"documento",
	"document",
	"page",
	"página",
}

// knownDocumentTitles is the closed set of knowledge base document titles the
// fabrication check scans the answer for.
var knownDocumentTitles = []string{
	"historia de veramoney",
	"regulacion fintech",
	"regulacion bancaria",
	"veramoney history",
	"fintech regulation",
	"banking regulation",
}

// CitationGuardrails verifies that answers grounded in knowledge base
// retrievals cite their sources, and that cited document titles were actually
// retrieved. Violations are recorded as findings; the response is never
// modified.
type CitationGuardrails struct {
	recorder FindingRecorder
}

// NewCitationGuardrails constructs the interceptor.
func NewCitationGuardrails(recorder FindingRecorder) *CitationGuardrails {
	return &CitationGuardrails{recorder: recorder}
}

// Name implements ModelInterceptor.
func (g *CitationGuardrails) Name() string { return "citation_guardrails" }

// WrapModel implements ModelInterceptor.
func (g *CitationGuardrails) WrapModel(next ModelHandler) ModelHandler {
	return func(ctx context.Context, req *ModelRequest) (*ModelResponse, error) {
		resp, err := next(ctx, req)
		if err != nil || resp == nil {
			return resp, err
		}

		responseText := strings.ToLower(resp.Content.Text())
		if responseText == "" {
			return resp, nil
		}

		results := knowledgeResults(req.Contents)
		if len(results) == 0 {
			return resp, nil
		}

		g.checkCitationPresence(ctx, req.SessionID, responseText, results)
		g.checkFabricatedCitations(ctx, req.SessionID, responseText, results)

		return resp, nil
	}
}

type knowledgeResult struct {
	Chunks []struct {
		DocumentTitle string `json:"document_title"`
		PageNumber    int    `json:"page_number"`
	} `json:"chunks"`
}

// knowledgeResults parses every successful knowledge tool response in the
// turn.
func knowledgeResults(contents []core.Content) []knowledgeResult {
	var results []knowledgeResult
	for _, c := range contents {
		for _, p := range c.Parts {
			fr, ok := p.(core.FunctionResponsePart)
			if !ok || fr.FunctionResponse.IsError || fr.FunctionResponse.Name != tool.KnowledgeToolName {
				continue
			}
			var kr knowledgeResult
			if err := json.Unmarshal([]byte(fr.FunctionResponse.Content), &kr); err != nil {
				continue
			}
			results = append(results, kr)
		}
	}
	return results
}

func (g *CitationGuardrails) checkCitationPresence(ctx context.Context, sessionID, responseText string, results []knowledgeResult) {
	hasChunks := false
	for _, r := range results {
		if len(r.Chunks) > 0 {
			hasChunks = true
			break
		}
	}
	if !hasChunks {
		return
	}

	for _, indicator := range citationIndicators {
		if strings.Contains(responseText, indicator) {
			return
		}
	}

	g.recorder.Record(ctx, Finding{
		Kind:      FindingMissingCitation,
		SessionID: sessionID,
		Tool:      tool.KnowledgeToolName,
		Detail:    "knowledge-grounded answer has no citation indicator",
	})
}

func (g *CitationGuardrails) checkFabricatedCitations(ctx context.Context, sessionID, responseText string, results []knowledgeResult) {
	retrievedTitles := map[string]bool{}
	for _, r := range results {
		for _, chunk := range r.Chunks {
			if chunk.DocumentTitle != "" {
				retrievedTitles[strings.ToLower(chunk.DocumentTitle)] = true
			}
		}
	}
	if len(retrievedTitles) == 0 {
		return
	}

	for _, mentioned := range knownDocumentTitles {
		if !strings.Contains(responseText, mentioned) {
			continue
		}

		known := false
		for title := range retrievedTitles {
			if strings.Contains(title, mentioned) || strings.Contains(mentioned, title) {
				known = true
				break
			}
		}
		if !known {
			g.recorder.Record(ctx, Finding{
				Kind:      FindingFabricatedCitation,
				SessionID: sessionID,
				Tool:      tool.KnowledgeToolName,
				Detail:    mentioned,
			})
		}
	}
}
