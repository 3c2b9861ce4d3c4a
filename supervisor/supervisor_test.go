package supervisor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/model"
	"github.com/veramoney/chatmesh/session"
	"github.com/veramoney/chatmesh/tool"
	"github.com/veramoney/chatmesh/worker"
)

const testSessionID = "7f8b0c1a-5b0e-4a43-9a3e-2f3b43999030"

// echoTool answers every invocation with a fixed payload.
type echoTool struct {
	name   string
	result string
}

func (e *echoTool) Name() string        { return e.name }
func (e *echoTool) Description() string { return "echo" }

func (e *echoTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (e *echoTool) Invoke(context.Context, map[string]any) (string, error) {
	return e.result, nil
}

// newTestRegistry registers weather and stock workers whose unscripted mock
// models answer with plain text immediately.
func newTestRegistry() *worker.Registry {
	factory := &worker.Factory{Model: model.NewMockModel("worker-mock", "mock")}

	registry := worker.NewRegistry()
	registry.Register(factory.NewWeather(&echoTool{name: tool.WeatherToolName, result: "{}"}))
	registry.Register(factory.NewStock(&echoTool{name: tool.StockToolName, result: "{}"}))

	return registry
}

func drain(t *testing.T, events <-chan core.Event, errs <-chan error) ([]core.Event, error) {
	t.Helper()

	var collected []core.Event
	for ev := range events {
		collected = append(collected, ev)
	}
	return collected, <-errs
}

func dualCallResponse() model.Response {
	return model.Response{
		Content: core.Content{
			Role: "assistant",
			Parts: []core.Part{
				core.FunctionCallPart{FunctionCall: core.FunctionCall{
					ID:        "call-1",
					Name:      "ask_weather_agent",
					Arguments: `{"request":"weather in Montevideo"}`,
				}},
				core.FunctionCallPart{FunctionCall: core.FunctionCall{
					ID:        "call-2",
					Name:      "ask_stock_agent",
					Arguments: `{"request":"AAPL price"}`,
				}},
			},
		},
		FinishReason: "tool_calls",
	}
}

func TestSupervisor_RejectsInvalidSessionID(t *testing.T) {
	s := New(Config{
		Model:    model.NewMockModel("mock", "mock"),
		Registry: newTestRegistry(),
		Store:    session.NewInMemoryStore(),
	})

	_, _, err := s.Run(context.Background(), "not-a-uuid", "hello")
	assert.ErrorIs(t, err, core.ErrInvalidSessionID)
}

func TestSupervisor_DirectAnswer(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script(model.TextResponse("Hello! How can I help you today?"))

	store := session.NewInMemoryStore()
	s := New(Config{Model: m, Registry: newTestRegistry(), Store: store})

	events, errs, err := s.Run(context.Background(), testSessionID, "hi")
	require.NoError(t, err)

	collected, runErr := drain(t, events, errs)
	require.NoError(t, runErr)
	require.Len(t, collected, 1)

	final := collected[0]
	assert.True(t, final.IsFinalResponse())
	require.NotNil(t, final.TurnComplete)
	assert.True(t, *final.TurnComplete)
	assert.Equal(t, "Hello! How can I help you today?", final.Text())

	// User message and final answer are both persisted.
	sess, err := store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.EventCount())
}

func TestSupervisor_ConcurrentDualDispatch(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script(
		dualCallResponse(),
		model.TextResponse("Weather and price both retrieved."),
	)

	s := New(Config{Model: m, Registry: newTestRegistry(), Store: session.NewInMemoryStore()})

	events, errs, err := s.Run(context.Background(), testSessionID, "weather in Montevideo and AAPL price")
	require.NoError(t, err)

	collected, runErr := drain(t, events, errs)
	require.NoError(t, runErr)

	var calls, responses []core.Event
	var final *core.Event
	for i, ev := range collected {
		switch {
		case len(ev.GetFunctionCalls()) > 0:
			calls = append(calls, ev)
		case len(ev.GetFunctionResponses()) > 0:
			responses = append(responses, ev)
		case ev.TurnComplete != nil && *ev.TurnComplete:
			final = &collected[i]
		}
	}

	require.Len(t, calls, 2)
	require.Len(t, responses, 2)
	require.NotNil(t, final)

	// Result events arrive as workers complete, in no particular order.
	var responded []string
	for _, ev := range responses {
		responded = append(responded, ev.GetFunctionResponses()[0].Name)
	}
	assert.ElementsMatch(t, []string{"ask_weather_agent", "ask_stock_agent"}, responded)
	assert.Equal(t, "Weather and price both retrieved.", final.Text())
}

func TestSupervisor_IterationLimitDegrades(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script(dualCallResponse())

	s := New(Config{
		Model:         m,
		Registry:      newTestRegistry(),
		Store:         session.NewInMemoryStore(),
		MaxModelCalls: 1,
	})

	events, errs, err := s.Run(context.Background(), testSessionID, "weather and stock please")
	require.NoError(t, err)

	collected, runErr := drain(t, events, errs)
	require.NoError(t, runErr, "hitting the bound must degrade, not fail")

	final := collected[len(collected)-1]
	require.NotNil(t, final.TurnComplete)
	assert.Equal(t, "I wasn't able to fully complete that request. Please try again.", final.Text())
}

func TestSupervisor_UnknownWorkerDegrades(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script(
		model.ToolCallResponse("call-1", "ask_translation_agent", `{"request":"translate this"}`),
		model.TextResponse("I can't help with translations."),
	)

	s := New(Config{Model: m, Registry: newTestRegistry(), Store: session.NewInMemoryStore()})

	events, errs, err := s.Run(context.Background(), testSessionID, "translate something")
	require.NoError(t, err)

	collected, runErr := drain(t, events, errs)
	require.NoError(t, runErr)

	var toolResp *core.FunctionResponse
	for _, ev := range collected {
		if frs := ev.GetFunctionResponses(); len(frs) > 0 {
			toolResp = &frs[0]
		}
	}
	require.NotNil(t, toolResp)
	assert.True(t, toolResp.IsError)
	assert.Equal(t, "I'm having trouble accessing the requested service right now. Please try again.", toolResp.Content)

	final := collected[len(collected)-1]
	assert.Equal(t, "I can't help with translations.", final.Text())
}

func TestSupervisor_CancelledRunPersistsNoAssistantMessage(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script(model.TextResponse("should never be persisted"))

	store := session.NewInMemoryStore()
	s := New(Config{Model: m, Registry: newTestRegistry(), Store: store})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, errs, err := s.Run(ctx, testSessionID, "hello")
	require.NoError(t, err)

	_, runErr := drain(t, events, errs)
	assert.ErrorIs(t, runErr, context.Canceled)

	sess, err := store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	for _, ev := range sess.GetEvents() {
		if ev.Content != nil {
			assert.NotEqual(t, "assistant", ev.Content.Role)
		}
	}
}

// recordingRecorder captures opening message notifications.
type recordingRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingRecorder) RecordOpeningMessage(_, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func TestSupervisor_RecordsOnlyOpeningMessage(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script(
		model.TextResponse("first answer"),
		model.TextResponse("second answer"),
	)

	recorder := &recordingRecorder{}
	s := New(Config{
		Model:    m,
		Registry: newTestRegistry(),
		Store:    session.NewInMemoryStore(),
		Recorder: recorder,
	})

	for _, msg := range []string{"what's the weather?", "and tomorrow?"} {
		events, errs, err := s.Run(context.Background(), testSessionID, msg)
		require.NoError(t, err)
		_, runErr := drain(t, events, errs)
		require.NoError(t, runErr)
	}

	// Recording is asynchronous in production implementations; here the stub
	// is synchronous, but leave a small grace period for channel teardown.
	deadline := time.Now().Add(time.Second)
	for {
		recorder.mu.Lock()
		n := len(recorder.messages)
		recorder.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.messages, 1)
	assert.Equal(t, "what's the weather?", recorder.messages[0])
}
