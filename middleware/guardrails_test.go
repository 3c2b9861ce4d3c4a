package middleware

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/tool"
)

// memoryRecorder collects findings for assertions.
type memoryRecorder struct {
	mu       sync.Mutex
	findings []Finding
}

func (r *memoryRecorder) Record(_ context.Context, f Finding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findings = append(r.findings, f)
}

func (r *memoryRecorder) all() []Finding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Finding(nil), r.findings...)
}

func toolResultContent(name, result string) core.Content {
	return core.Content{
		Role: "tool",
		Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
			ID:      "call-1",
			Name:    name,
			Content: result,
		}}},
	}
}

func runOutputGuardrails(t *testing.T, recorder FindingRecorder, contents []core.Content, answer string) *ModelResponse {
	t.Helper()

	handler := NewOutputGuardrails(recorder).WrapModel(func(context.Context, *ModelRequest) (*ModelResponse, error) {
		return &ModelResponse{Content: core.Content{
			Role:  "assistant",
			Parts: []core.Part{core.TextPart{Text: answer}},
		}}, nil
	})

	resp, err := handler(context.Background(), &ModelRequest{SessionID: "s1", Contents: contents})
	require.NoError(t, err)
	return resp
}

func TestOutputGuardrails_TemperatureMismatchRecorded(t *testing.T) {
	recorder := &memoryRecorder{}
	contents := []core.Content{
		toolResultContent(tool.WeatherToolName, `{"city":"Montevideo","temperature_celsius":18.0}`),
	}
	answer := "The temperature in Montevideo is 25C right now."

	resp := runOutputGuardrails(t, recorder, contents, answer)

	findings := recorder.all()
	require.Len(t, findings, 1)
	assert.Equal(t, FindingNumericMismatch, findings[0].Kind)
	assert.Equal(t, tool.WeatherToolName, findings[0].Tool)
	assert.InDelta(t, 18.0, findings[0].Expected, 0.001)
	assert.InDelta(t, 25.0, findings[0].Found, 0.001)

	// Advisory only: the answer passes through unchanged.
	assert.Equal(t, answer, resp.Content.Text())
}

func TestOutputGuardrails_TemperatureWithinTolerance(t *testing.T) {
	recorder := &memoryRecorder{}
	contents := []core.Content{
		toolResultContent(tool.WeatherToolName, `{"temperature_celsius":18.4}`),
	}

	runOutputGuardrails(t, recorder, contents, "The temperature is 18C in Montevideo.")
	assert.Empty(t, recorder.all())
}

func TestOutputGuardrails_PriceMismatchRecorded(t *testing.T) {
	recorder := &memoryRecorder{}
	contents := []core.Content{
		toolResultContent(tool.StockToolName, `{"ticker":"AAPL","price":187.32}`),
	}

	runOutputGuardrails(t, recorder, contents, "The AAPL stock price is $190.00.")

	findings := recorder.all()
	require.Len(t, findings, 1)
	assert.Equal(t, tool.StockToolName, findings[0].Tool)
}

func TestOutputGuardrails_LatestResultWins(t *testing.T) {
	recorder := &memoryRecorder{}
	contents := []core.Content{
		toolResultContent(tool.WeatherToolName, `{"temperature_celsius":10.0}`),
		toolResultContent(tool.WeatherToolName, `{"temperature_celsius":25.0}`),
	}

	runOutputGuardrails(t, recorder, contents, "The temperature is 25C.")
	assert.Empty(t, recorder.all())
}

func TestOutputGuardrails_ErrorResultsIgnored(t *testing.T) {
	recorder := &memoryRecorder{}
	contents := []core.Content{{
		Role: "tool",
		Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
			Name:    tool.WeatherToolName,
			Content: "I'm having trouble accessing weather data right now. Please try again.",
			IsError: true,
		}}},
	}}

	runOutputGuardrails(t, recorder, contents, "The temperature is 99C.")
	assert.Empty(t, recorder.all())
}

func runCitationGuardrails(t *testing.T, recorder FindingRecorder, contents []core.Content, answer string) {
	t.Helper()

	handler := NewCitationGuardrails(recorder).WrapModel(func(context.Context, *ModelRequest) (*ModelResponse, error) {
		return &ModelResponse{Content: core.Content{
			Role:  "assistant",
			Parts: []core.Part{core.TextPart{Text: answer}},
		}}, nil
	})

	_, err := handler(context.Background(), &ModelRequest{SessionID: "s1", Contents: contents})
	require.NoError(t, err)
}

const knowledgeChunks = `{"chunks":[{"content":"VeraMoney was founded in 2015.","document_title":"Historia de VeraMoney","page_number":3}]}`

func TestCitationGuardrails_MissingCitation(t *testing.T) {
	recorder := &memoryRecorder{}
	contents := []core.Content{toolResultContent(tool.KnowledgeToolName, knowledgeChunks)}

	runCitationGuardrails(t, recorder, contents, "VeraMoney was founded in 2015.")

	findings := recorder.all()
	require.Len(t, findings, 1)
	assert.Equal(t, FindingMissingCitation, findings[0].Kind)
}

func TestCitationGuardrails_CitedAnswerPasses(t *testing.T) {
	recorder := &memoryRecorder{}
	contents := []core.Content{toolResultContent(tool.KnowledgeToolName, knowledgeChunks)}

	runCitationGuardrails(t, recorder, contents,
		"According to Historia de VeraMoney (page 3), VeraMoney was founded in 2015.")
	assert.Empty(t, recorder.all())
}

func TestCitationGuardrails_FabricatedTitle(t *testing.T) {
	recorder := &memoryRecorder{}
	contents := []core.Content{toolResultContent(tool.KnowledgeToolName, knowledgeChunks)}

	runCitationGuardrails(t, recorder, contents,
		"Source: Fintech Regulation, the cap applies to all transfers.")

	findings := recorder.all()
	require.Len(t, findings, 1)
	assert.Equal(t, FindingFabricatedCitation, findings[0].Kind)
	assert.Equal(t, "fintech regulation", findings[0].Detail)
}

func TestCitationGuardrails_NoKnowledgeResults(t *testing.T) {
	recorder := &memoryRecorder{}

	runCitationGuardrails(t, recorder, nil, "The weather is sunny.")
	assert.Empty(t, recorder.all())
}
