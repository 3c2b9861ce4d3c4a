package middleware

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/tool"
)

const (
	temperatureTolerance = 1.0
	priceTolerance       = 0.01
)

var temperaturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*°?[cC]`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*°?[fF]`),
	regexp.MustCompile(`temperature\s*(?:is|of)?\s*(\d+(?:\.\d+)?)`),
}

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)price\s*(?:is|of)?\s*\$?(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:usd|dollars?)`),
}

// OutputGuardrails cross-checks numeric claims in the final answer against
// the weather and stock tool results of the same turn. Mismatches beyond
// tolerance are recorded as findings; the response is never modified.
type OutputGuardrails struct {
	recorder FindingRecorder
}

// NewOutputGuardrails constructs the interceptor.
func NewOutputGuardrails(recorder FindingRecorder) *OutputGuardrails {
	return &OutputGuardrails{recorder: recorder}
}

// Name implements ModelInterceptor.
func (g *OutputGuardrails) Name() string { return "output_guardrails" }

// WrapModel implements ModelInterceptor.
func (g *OutputGuardrails) WrapModel(next ModelHandler) ModelHandler {
	return func(ctx context.Context, req *ModelRequest) (*ModelResponse, error) {
		resp, err := next(ctx, req)
		if err != nil || resp == nil {
			return resp, err
		}

		responseText := strings.ToLower(resp.Content.Text())
		if responseText == "" {
			return resp, nil
		}

		results := latestToolResults(req.Contents, tool.WeatherToolName, tool.StockToolName)

		if result, ok := results[tool.WeatherToolName]; ok {
			g.checkWeather(ctx, req.SessionID, responseText, result)
		}
		if result, ok := results[tool.StockToolName]; ok {
			g.checkStock(ctx, req.SessionID, responseText, result)
		}

		return resp, nil
	}
}

func (g *OutputGuardrails) checkWeather(ctx context.Context, sessionID, responseText, toolResult string) {
	if !strings.Contains(responseText, "weather") && !strings.Contains(responseText, "temperature") {
		return
	}

	expected, ok := extractFloatField(toolResult, "temperature", "temperature_celsius")
	if !ok {
		return
	}

	found, ok := findFirstNumber(responseText, temperaturePatterns)
	if !ok {
		return
	}

	if diff := found - expected; diff > temperatureTolerance || diff < -temperatureTolerance {
		g.recorder.Record(ctx, Finding{
			Kind:      FindingNumericMismatch,
			SessionID: sessionID,
			Tool:      tool.WeatherToolName,
			Expected:  expected,
			Found:     found,
		})
	}
}

func (g *OutputGuardrails) checkStock(ctx context.Context, sessionID, responseText, toolResult string) {
	if !strings.Contains(responseText, "stock") && !strings.Contains(responseText, "price") {
		return
	}

	expected, ok := extractFloatField(toolResult, "price")
	if !ok {
		return
	}

	found, ok := findFirstNumber(responseText, pricePatterns)
	if !ok {
		return
	}

	if diff := found - expected; diff > priceTolerance || diff < -priceTolerance {
		g.recorder.Record(ctx, Finding{
			Kind:      FindingNumericMismatch,
			SessionID: sessionID,
			Tool:      tool.StockToolName,
			Expected:  expected,
			Found:     found,
		})
	}
}

// latestToolResults scans the turn for function responses of the named tools.
// When a tool was called more than once the latest result wins.
func latestToolResults(contents []core.Content, toolNames ...string) map[string]string {
	wanted := make(map[string]bool, len(toolNames))
	for _, n := range toolNames {
		wanted[n] = true
	}

	results := map[string]string{}
	for _, c := range contents {
		for _, p := range c.Parts {
			fr, ok := p.(core.FunctionResponsePart)
			if !ok || fr.FunctionResponse.IsError {
				continue
			}
			if wanted[fr.FunctionResponse.Name] {
				results[fr.FunctionResponse.Name] = fr.FunctionResponse.Content
			}
		}
	}
	return results
}

// extractFloatField parses content as JSON and returns the first numeric
// value found under any of the candidate keys.
func extractFloatField(content string, keys ...string) (float64, bool) {
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return 0, false
	}
	for _, key := range keys {
		if v, ok := data[key].(float64); ok {
			return v, true
		}
	}
	return 0, false
}

func findFirstNumber(text string, patterns []*regexp.Regexp) (float64, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}
