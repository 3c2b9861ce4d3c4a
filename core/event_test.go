package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvent_ConstructorsAndMethods(t *testing.T) {
	e := NewEvent("run-123", "supervisor")
	if e.Author != "supervisor" || e.RunID != "run-123" || e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("NewEvent did not initialize fields correctly: %+v", e)
	}

	msg := NewMessageEvent("run-123", "supervisor", "hello world")
	if msg.Content == nil || msg.Content.Role != "assistant" || len(msg.Content.Parts) != 1 {
		t.Fatalf("NewMessageEvent malformed: %+v", msg)
	}
	assert.Equal(t, "hello world", msg.Text())

	user := NewUserMessageEvent("run-123", "hi")
	if user.Content == nil || user.Content.Role != "user" {
		t.Fatalf("NewUserMessageEvent malformed: %+v", user)
	}

	resp := NewFunctionResponseEvent("run-123", "supervisor", FunctionResponse{
		ID:      "call-1",
		Name:    "get_weather",
		Content: `{"city":"Montevideo"}`,
	})
	responses := resp.GetFunctionResponses()
	assert.Len(t, responses, 1)
	assert.Equal(t, "call-1", responses[0].ID)
	assert.Equal(t, "tool", resp.Content.Role)

	errEv := NewErrorEvent("run-123", "supervisor", "Something went wrong. Please try again.")
	assert.True(t, errEv.IsError())
	assert.Nil(t, errEv.Content)
}

func TestEvent_IsFinalResponse(t *testing.T) {
	final := NewMessageEvent("run", "supervisor", "done")
	assert.True(t, final.IsFinalResponse())

	partial := true
	chunk := NewMessageEvent("run", "supervisor", "do")
	chunk.Partial = &partial
	assert.False(t, chunk.IsFinalResponse())

	withCall := NewEvent("run", "supervisor")
	withCall.Content = &Content{Role: "assistant", Parts: []Part{
		FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "ask_weather_agent"}},
	}}
	assert.False(t, withCall.IsFinalResponse())

	withResp := NewFunctionResponseEvent("run", "supervisor", FunctionResponse{ID: "c1", Name: "ask_weather_agent"})
	assert.False(t, withResp.IsFinalResponse())
}

func TestFunctionCall_ArgumentsMap(t *testing.T) {
	fc := FunctionCall{Name: "get_stock_price", Arguments: `{"ticker":"AAPL"}`}
	args, err := fc.ArgumentsMap()
	assert.NoError(t, err)
	assert.Equal(t, "AAPL", args["ticker"])

	empty := FunctionCall{Name: "get_weather"}
	args, err = empty.ArgumentsMap()
	assert.NoError(t, err)
	assert.Empty(t, args)

	bad := FunctionCall{Name: "get_weather", Arguments: "{not-json"}
	_, err = bad.ArgumentsMap()
	assert.Error(t, err)
}
