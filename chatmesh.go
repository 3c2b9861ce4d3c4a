// Package chatmesh provides a high-level façade over the supervisor, worker
// and session abstractions, enabling rapid construction of the conversational
// assistant. Most applications interact with this package by:
//  1. Creating a ChatMesh via New() (optionally overriding default in-memory services)
//  2. Invoking turns asynchronously (Chat) or synchronously (ChatSync)
//
// The façade delegates orchestration to supervisor.Supervisor while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a durable
// session store and a structured logger.
package chatmesh

import (
	"context"

	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/logging"
	"github.com/veramoney/chatmesh/middleware"
	"github.com/veramoney/chatmesh/model"
	"github.com/veramoney/chatmesh/observe"
	"github.com/veramoney/chatmesh/session"
	"github.com/veramoney/chatmesh/supervisor"
	"github.com/veramoney/chatmesh/tool"
	"github.com/veramoney/chatmesh/worker"
)

// Options configures the ChatMesh instance.
type Options struct {
	// SupervisorModel drives routing and synthesis. Required.
	SupervisorModel model.Model
	// WorkerModel drives the specialist workers. Defaults to SupervisorModel.
	WorkerModel model.Model

	// Specialist tools. A nil tool skips registration of that worker.
	WeatherTool   tool.Tool
	StockTool     tool.Tool
	KnowledgeTool tool.Tool

	// SessionStore persists conversation history. Defaults to in-memory.
	SessionStore core.SessionStore

	// Chain applies cross-cutting middleware to every model and tool call.
	// Defaults to the standard logging + guardrail chain.
	Chain *middleware.Chain

	// Recorder is notified of opening messages for dataset collection.
	// Optional.
	Recorder supervisor.OpeningRecorder

	// MaxModelCalls bounds supervisor reasoning steps per turn. Zero selects
	// the default.
	MaxModelCalls int
	// WorkerIterations bounds each worker's tool loop. Zero selects the
	// default.
	WorkerIterations int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// ChatMesh is the high-level façade aggregating the supervisor and its
// services.
type ChatMesh struct {
	opts       Options
	supervisor *supervisor.Supervisor
	registry   *worker.Registry
}

// New creates a new ChatMesh instance with optional overrides. Any unset
// service is initialized with a safe default.
func New(optFns ...func(o *Options)) *ChatMesh {
	opts := Options{
		SessionStore: session.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.WorkerModel == nil {
		opts.WorkerModel = opts.SupervisorModel
	}
	if opts.Chain == nil {
		opts.Chain = middleware.Default(opts.Logger, middleware.NewLogRecorder(opts.Logger))
	}
	if sq, ok := opts.Recorder.(observe.StockQueryRecorder); ok {
		opts.Chain.UseTool(observe.NewStockQueryObserver(sq))
	}

	factory := &worker.Factory{
		Model:         opts.WorkerModel,
		Chain:         opts.Chain,
		Logger:        opts.Logger,
		MaxIterations: opts.WorkerIterations,
	}

	registry := worker.NewRegistry()
	if opts.WeatherTool != nil {
		registry.Register(factory.NewWeather(opts.WeatherTool))
	}
	if opts.StockTool != nil {
		registry.Register(factory.NewStock(opts.StockTool))
	}
	if opts.KnowledgeTool != nil {
		registry.Register(factory.NewKnowledge(opts.KnowledgeTool))
	}

	sup := supervisor.New(supervisor.Config{
		Model:         opts.SupervisorModel,
		Registry:      registry,
		Store:         opts.SessionStore,
		Chain:         opts.Chain,
		Logger:        opts.Logger,
		Recorder:      opts.Recorder,
		MaxModelCalls: opts.MaxModelCalls,
	})

	return &ChatMesh{opts: opts, supervisor: sup, registry: registry}
}

// Registry exposes the registered workers, primarily for introspection.
func (m *ChatMesh) Registry() *worker.Registry { return m.registry }

// Chat starts an asynchronous conversation turn returning event & error
// channels. The session ID must be a UUID.
func (m *ChatMesh) Chat(
	ctx context.Context,
	sessionID string,
	message string,
) (<-chan core.Event, <-chan error, error) {
	return m.supervisor.Run(ctx, sessionID, message)
}

// ChatSync is a synchronous helper that drains the async channels,
// accumulates events and returns the final assistant text.
func (m *ChatMesh) ChatSync(
	ctx context.Context,
	sessionID string,
	message string,
) (string, []core.Event, error) {
	eventsCh, errorsCh, err := m.supervisor.Run(ctx, sessionID, message)
	if err != nil {
		return "", nil, err
	}

	// Drain events first; the error channel is read once after the event
	// channel closes, matching the run's channel contract.
	var (
		events []core.Event
		final  string
	)
	for event := range eventsCh {
		events = append(events, event)
		if event.IsFinalResponse() && !event.IsError() {
			final = event.Text()
		}
	}

	return final, events, <-errorsCh
}

// Close releases the underlying session store.
func (m *ChatMesh) Close() error {
	return m.opts.SessionStore.Close()
}
