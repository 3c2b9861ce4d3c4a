package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/internal/testutil"
)

// runChannels feeds a canned run into pump-compatible channels.
func runChannels(events []core.Event, runErr error) (<-chan core.Event, <-chan error) {
	evCh := make(chan core.Event, len(events))
	for _, ev := range events {
		evCh <- ev
	}
	close(evCh)

	errCh := make(chan error, 1)
	if runErr != nil {
		errCh <- runErr
	}
	close(errCh)

	return evCh, errCh
}

func collectPump(t *testing.T, events []core.Event, runErr error) ([]Event, error) {
	t.Helper()

	evCh, errCh := runChannels(events, runErr)
	var sent []Event
	err := Pump(context.Background(), evCh, errCh, func(ev Event) error {
		sent = append(sent, ev)
		return nil
	})
	return sent, err
}

func TestPump_StreamingTurn(t *testing.T) {
	events := []core.Event{
		testutil.NewEventBuilder().Run("r1").Partial(true).AssistantText("It is ").Build(),
		testutil.NewEventBuilder().Run("r1").Partial(true).AssistantText("18C.").Build(),
		testutil.NewEventBuilder().Run("r1").TurnComplete(true).AssistantText("It is 18C.").Build(),
	}

	sent, err := collectPump(t, events, nil)
	require.NoError(t, err)

	require.Len(t, sent, 3)
	assert.Equal(t, EventToken, sent[0].Type)
	assert.Equal(t, EventToken, sent[1].Type)
	assert.Equal(t, EventDone, sent[2].Type)

	// Streamed tokens suppress re-sending the final text.
	var td TokenData
	require.NoError(t, json.Unmarshal(sent[0].Data, &td))
	assert.Equal(t, "It is ", td.Content)
}

func TestPump_NonStreamingTurnSendsFinalText(t *testing.T) {
	events := []core.Event{
		testutil.NewEventBuilder().Run("r1").TurnComplete(true).AssistantText("Full answer.").Build(),
	}

	sent, err := collectPump(t, events, nil)
	require.NoError(t, err)

	require.Len(t, sent, 2)
	assert.Equal(t, EventToken, sent[0].Type)
	assert.Equal(t, EventDone, sent[1].Type)

	var td TokenData
	require.NoError(t, json.Unmarshal(sent[0].Data, &td))
	assert.Equal(t, "Full answer.", td.Content)
}

func TestPump_ToolCallAndResult(t *testing.T) {
	events := []core.Event{
		testutil.NewEventBuilder().Run("r1").
			FunctionCall("call-1", "ask_weather_agent", `{"request":"weather"}`).Build(),
		testutil.NewEventBuilder().Run("r1").
			FunctionResponse("call-1", "ask_weather_agent", "18C and cloudy", false).Build(),
		testutil.NewEventBuilder().Run("r1").TurnComplete(true).AssistantText("It is 18C.").Build(),
	}

	sent, err := collectPump(t, events, nil)
	require.NoError(t, err)

	require.Len(t, sent, 4)
	assert.Equal(t, EventToolCall, sent[0].Type)
	assert.Equal(t, EventToolResult, sent[1].Type)
	assert.Equal(t, EventToken, sent[2].Type)
	assert.Equal(t, EventDone, sent[3].Type)

	var tc ToolCallData
	require.NoError(t, json.Unmarshal(sent[0].Data, &tc))
	assert.Equal(t, "ask_weather_agent", tc.Tool)
	assert.Equal(t, "weather", tc.Args["request"])
}

func TestPump_RunErrorSendsErrorEvent(t *testing.T) {
	runErr := errors.New("model unavailable")

	sent, err := collectPump(t, nil, runErr)
	assert.ErrorIs(t, err, runErr)

	require.Len(t, sent, 1)
	assert.Equal(t, EventError, sent[0].Type)

	var ed ErrorData
	require.NoError(t, json.Unmarshal(sent[0].Data, &ed))
	assert.Equal(t, "An error occurred during processing", ed.Message)
	assert.NotContains(t, ed.Message, "model unavailable")
}

func TestPump_SendFailureAborts(t *testing.T) {
	events := []core.Event{
		testutil.NewEventBuilder().Run("r1").TurnComplete(true).AssistantText("hi").Build(),
	}

	evCh, errCh := runChannels(events, nil)
	sendErr := errors.New("client went away")

	err := Pump(context.Background(), evCh, errCh, func(Event) error { return sendErr })
	assert.ErrorIs(t, err, sendErr)
}
