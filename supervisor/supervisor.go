// Package supervisor implements the orchestrating agent. The supervisor owns
// the per-request state machine: it loads conversation memory, reasons with
// its model, dispatches worker agents (concurrently when one reasoning step
// requests several), feeds results back and synthesizes the final answer.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/logging"
	"github.com/veramoney/chatmesh/middleware"
	"github.com/veramoney/chatmesh/model"
	"github.com/veramoney/chatmesh/worker"
)

// State labels the supervisor's per-request phases.
type State string

const (
	StateIdle               State = "idle"
	StateLoadingMemory      State = "loading_memory"
	StateReasoning          State = "reasoning"
	StateDispatchingWorkers State = "dispatching_workers"
	StateSynthesizing       State = "synthesizing"
	StateDone               State = "done"
)

// DefaultMaxModelCalls bounds the supervisor's reasoning loop per request.
const DefaultMaxModelCalls = 10

// partialAnswerFallback is returned when the iteration bound is reached
// without any usable assistant text.
const partialAnswerFallback = "I wasn't able to fully complete that request. Please try again."

// OpeningRecorder receives opening-message notifications. Implementations
// must be safe to call concurrently and must never block the request path.
type OpeningRecorder interface {
	RecordOpeningMessage(sessionID, message string)
}

// Config wires a Supervisor.
type Config struct {
	Model    model.Model
	Registry *worker.Registry
	Store    core.SessionStore
	Chain    *middleware.Chain
	Logger   logging.Logger
	// Recorder is notified when a session's opening message arrives.
	// Optional.
	Recorder OpeningRecorder
	// MaxModelCalls bounds the reasoning loop; zero selects the default.
	MaxModelCalls int
	// Instructions is the supervisor system prompt. Supports
	// {{current_date}}.
	Instructions string
}

// Supervisor orchestrates one conversation turn at a time.
type Supervisor struct {
	cfg       Config
	callModel middleware.ModelHandler
	callTool  middleware.ToolHandler
}

// New constructs a Supervisor.
func New(cfg Config) *Supervisor {
	if cfg.MaxModelCalls <= 0 {
		cfg.MaxModelCalls = DefaultMaxModelCalls
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}
	if cfg.Chain == nil {
		cfg.Chain = middleware.NewChain()
	}
	if cfg.Instructions == "" {
		cfg.Instructions = systemPrompt
	}

	s := &Supervisor{cfg: cfg}
	s.callModel = cfg.Chain.WrapModel(s.generate)
	s.callTool = cfg.Chain.WrapTool(s.dispatchOne)

	return s
}

// Run handles one user message for a session. It returns an event channel
// carrying streaming fragments and the final turn, and an error channel that
// receives at most one terminal error. Both channels are closed when the run
// finishes. Validation failures are returned synchronously.
func (s *Supervisor) Run(ctx context.Context, sessionID, message string) (<-chan core.Event, <-chan error, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return nil, nil, err
	}

	events := make(chan core.Event, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errCh)

		if err := s.run(ctx, sessionID, message, events); err != nil {
			errCh <- err
		}
	}()

	return events, errCh, nil
}

func (s *Supervisor) run(ctx context.Context, sessionID, message string, events chan<- core.Event) error {
	runID := core.NewID()
	ctx = middleware.WithUserMessage(ctx, message)
	state := s.transition(sessionID, StateIdle, StateLoadingMemory)

	sess, err := s.cfg.Store.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	if s.cfg.Recorder != nil {
		opening, err := s.cfg.Store.IsOpening(ctx, sessionID)
		if err != nil {
			s.cfg.Logger.Debug("supervisor.opening_check_failed", "session", sessionID, "error", err.Error())
		} else if opening {
			s.cfg.Recorder.RecordOpeningMessage(sessionID, message)
		}
	}

	userEvent := core.NewUserMessageEvent(runID, message)
	if err := s.cfg.Store.AppendEvent(ctx, sessionID, userEvent); err != nil {
		return err
	}

	contents := append(sess.GetConversationHistory(), *userEvent.Content)
	limiter := core.NewStepLimiter(s.cfg.MaxModelCalls)

	emitCtx := &emitContext{runID: runID, events: events}

	var lastText string
	for {
		state = s.transition(sessionID, state, StateReasoning)

		if err := limiter.Increment(); err != nil {
			// Hard stop. Degrade to the best partial text, never an error.
			s.cfg.Logger.Warn("supervisor.iteration_limit", "session", sessionID, "max", s.cfg.MaxModelCalls)
			final := lastText
			if final == "" {
				final = partialAnswerFallback
			}
			return s.finish(ctx, sessionID, runID, final, events)
		}

		resp, err := s.callModel(withEmit(ctx, emitCtx), &middleware.ModelRequest{
			SessionID: sessionID,
			Author:    "supervisor",
			Contents:  contents,
			Tools:     s.cfg.Registry.AgentToolNames(),
		})
		if err != nil {
			return err
		}

		if text := resp.Content.Text(); text != "" {
			lastText = text
		}

		calls := functionCalls(resp.Content)
		if len(calls) == 0 {
			state = s.transition(sessionID, state, StateSynthesizing)
			return s.finish(ctx, sessionID, runID, resp.Content.Text(), events)
		}

		state = s.transition(sessionID, state, StateDispatchingWorkers)
		contents = append(contents, resp.Content)

		responses, err := s.dispatch(ctx, sessionID, runID, calls, events)
		if err != nil {
			return err
		}
		for _, fr := range responses {
			contents = append(contents, core.Content{
				Role:  "tool",
				Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: fr}},
			})
		}
	}
}

// dispatch runs all worker calls of one reasoning step concurrently and joins
// before returning. Each result event is emitted the moment its worker
// completes; the returned slice still preserves call order for the model
// transcript.
func (s *Supervisor) dispatch(
	ctx context.Context,
	sessionID, runID string,
	calls []core.FunctionCall,
	events chan<- core.Event,
) ([]core.FunctionResponse, error) {
	for _, call := range calls {
		if err := emit(ctx, events, callEvent(runID, call)); err != nil {
			return nil, err
		}
	}

	responses := make([]core.FunctionResponse, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call core.FunctionCall) {
			defer wg.Done()

			args, err := call.ArgumentsMap()
			if err != nil {
				args = map[string]any{}
			}

			fr, err := s.callTool(ctx, &middleware.ToolRequest{
				SessionID: sessionID,
				Author:    "supervisor",
				Call:      call,
				Args:      args,
			})
			if err != nil {
				// The translation middleware absorbs dispatch failures; an
				// error here means the pipeline itself broke. Degrade to a
				// safe response so siblings still complete.
				s.cfg.Logger.Error("supervisor.dispatch_failed", "session", sessionID, "tool", call.Name, "error", err.Error())
				fr = core.FunctionResponse{
					ID:      call.ID,
					Name:    call.Name,
					Content: middleware.UserSafeToolMessage(call.Name),
					IsError: true,
				}
			}
			responses[i] = fr

			// Cancellation is reported once by the ctx check after the join.
			_ = emit(ctx, events, core.NewFunctionResponseEvent(runID, "supervisor", fr))
		}(i, call)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return responses, nil
}

// dispatchOne is the innermost tool handler: it routes one agent-tool call to
// its worker.
func (s *Supervisor) dispatchOne(ctx context.Context, req *middleware.ToolRequest) (core.FunctionResponse, error) {
	w, ok := s.cfg.Registry.Lookup(req.Call.Name)
	if !ok {
		return core.FunctionResponse{}, &UnknownWorkerError{Tool: req.Call.Name}
	}

	request, _ := req.Args["request"].(string)
	if request == "" {
		request = req.Call.Arguments
	}

	result := w.Run(ctx, req.SessionID, request)

	return core.FunctionResponse{
		ID:      req.Call.ID,
		Name:    req.Call.Name,
		Content: result,
	}, nil
}

// generate is the innermost model handler: one streaming reasoning step.
// Partial text fragments are forwarded as partial events; the accumulated
// final content is returned through the middleware chain.
func (s *Supervisor) generate(ctx context.Context, req *middleware.ModelRequest) (*middleware.ModelResponse, error) {
	emitCtx := emitFrom(ctx)

	respCh, errCh := s.cfg.Model.Generate(ctx, model.Request{
		Instructions: renderPrompt(s.cfg.Instructions, time.Now().UTC()),
		Contents:     req.Contents,
		Tools:        s.toolDefinitions(),
		Stream:       true,
	})

	var final *model.Response
	for resp := range respCh {
		if resp.Partial {
			if emitCtx != nil && resp.Content.Text() != "" {
				ev := core.NewEvent(emitCtx.runID, "supervisor")
				ev.Content = &resp.Content
				partial := true
				ev.Partial = &partial
				if err := emit(ctx, emitCtx.events, ev); err != nil {
					return nil, err
				}
			}
			continue
		}
		r := resp
		final = &r
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if final == nil {
		return nil, ErrNoModelResponse
	}

	return &middleware.ModelResponse{Content: final.Content}, nil
}

// finish emits the final turn event and persists it. A cancelled context
// skips persistence so no partial assistant message survives the turn.
func (s *Supervisor) finish(ctx context.Context, sessionID, runID, text string, events chan<- core.Event) error {
	final := core.NewMessageEvent(runID, "supervisor", text)
	done := true
	final.TurnComplete = &done

	if err := emit(ctx, events, final); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		s.cfg.Logger.Debug("supervisor.cancelled", "session", sessionID, "run", runID)
		return err
	}

	if err := s.cfg.Store.AppendEvent(ctx, sessionID, final); err != nil {
		return err
	}

	s.transition(sessionID, StateSynthesizing, StateDone)

	return nil
}

func (s *Supervisor) transition(sessionID string, from, to State) State {
	s.cfg.Logger.Debug("supervisor.state", "session", sessionID, "from", string(from), "to", string(to))
	return to
}

func (s *Supervisor) toolDefinitions() []model.ToolDefinition {
	workers := s.cfg.Registry.Workers()
	defs := make([]model.ToolDefinition, len(workers))
	for i, w := range workers {
		defs[i] = model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        worker.AgentToolName(w.Name()),
				Description: w.Description(),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"request": map[string]any{
							"type":        "string",
							"description": "The user request, restated for the specialist",
						},
					},
					"required": []string{"request"},
				},
			},
		}
	}
	return defs
}

func callEvent(runID string, call core.FunctionCall) core.Event {
	ev := core.NewEvent(runID, "supervisor")
	ev.Content = &core.Content{
		Role:  "assistant",
		Parts: []core.Part{core.FunctionCallPart{FunctionCall: call}},
	}
	return ev
}

func functionCalls(c core.Content) []core.FunctionCall {
	var calls []core.FunctionCall
	for _, p := range c.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

func emit(ctx context.Context, events chan<- core.Event, ev core.Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case events <- ev:
		return nil
	}
}

// emitContext threads the run's event channel to the innermost model handler
// through the middleware chain, which only knows context.Context.
type emitContext struct {
	runID  string
	events chan<- core.Event
}

type emitKey struct{}

func withEmit(ctx context.Context, ec *emitContext) context.Context {
	return context.WithValue(ctx, emitKey{}, ec)
}

func emitFrom(ctx context.Context) *emitContext {
	ec, _ := ctx.Value(emitKey{}).(*emitContext)
	return ec
}
