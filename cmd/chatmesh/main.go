// Command chatmesh runs the conversational assistant as an HTTP server with
// an SSE streaming chat endpoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/veramoney/chatmesh"
	"github.com/veramoney/chatmesh/config"
	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/logging"
	"github.com/veramoney/chatmesh/model"
	"github.com/veramoney/chatmesh/model/anthropic"
	"github.com/veramoney/chatmesh/model/openai"
	"github.com/veramoney/chatmesh/observe"
	"github.com/veramoney/chatmesh/session"
	"github.com/veramoney/chatmesh/stream"
	"github.com/veramoney/chatmesh/tool"
	"github.com/veramoney/chatmesh/tool/knowledge"
	"github.com/veramoney/chatmesh/tool/stock"
	"github.com/veramoney/chatmesh/tool/weather"
)

const envPrefix = "CHATMESH"

func main() {
	cfg := config.MustNew[config.Settings](envPrefix)

	logger := logging.New(logging.Config{
		Debug:        cfg.LogDebug,
		PrettyFormat: cfg.LogPretty,
	})

	store := newStore(cfg)
	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.Initialize(initCtx); err != nil {
		cancel()
		logger.Error("session store initialization failed", "error", err.Error())
		os.Exit(1)
	}
	cancel()

	supervisorModel, err := newModel(cfg, cfg.SupervisorModel)
	if err != nil {
		logger.Error("supervisor model setup failed", "error", err.Error())
		os.Exit(1)
	}
	workerModel, err := newModel(cfg, cfg.WorkerModel)
	if err != nil {
		logger.Error("worker model setup failed", "error", err.Error())
		os.Exit(1)
	}

	recorder := newRecorder(cfg, logger)

	mesh := chatmesh.New(func(o *chatmesh.Options) {
		o.SupervisorModel = supervisorModel
		o.WorkerModel = workerModel
		o.WeatherTool = newWeatherTool(cfg)
		o.StockTool = newStockTool(cfg)
		o.KnowledgeTool = newKnowledgeTool(cfg)
		o.SessionStore = store
		o.MaxModelCalls = cfg.MaxModelCalls
		o.WorkerIterations = cfg.WorkerIterations
		o.Logger = logger
		if recorder != nil {
			o.Recorder = recorder
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", chatHandler(mesh, cfg.RunTimeout, logger))
	mux.HandleFunc("GET /health", healthHandler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr, "provider", cfg.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err.Error())
	}
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Warn("recorder close failed", "error", err.Error())
		}
	}
	if err := mesh.Close(); err != nil {
		logger.Warn("store close failed", "error", err.Error())
	}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func chatHandler(mesh *chatmesh.ChatMesh, runTimeout time.Duration, logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		if req.Message == "" {
			writeJSONError(w, http.StatusBadRequest, "A message is required.")
			return
		}

		ctx := r.Context()
		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runTimeout)
			defer cancel()
		}

		events, errs, err := mesh.Chat(ctx, req.SessionID, req.Message)
		if err != nil {
			if errors.Is(err, core.ErrInvalidSessionID) {
				writeJSONError(w, http.StatusBadRequest, "Session ID must be a valid UUID.")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
			return
		}

		sw, err := stream.NewWriter(w)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "Streaming is not supported.")
			return
		}
		defer sw.Close()

		if err := stream.Pump(ctx, events, errs, sw.Send); err != nil {
			logger.Warn("chat turn failed", "session_id", req.SessionID, "error", err.Error())
		}
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

func newStore(cfg *config.Settings) core.SessionStore {
	if cfg.DatabaseDSN != "" {
		return session.NewPostgresStore(cfg.DatabaseDSN)
	}
	return session.NewInMemoryStore()
}

func newModel(cfg *config.Settings, name string) (model.Model, error) {
	switch cfg.Provider {
	case "openai", "":
		var clientOpts []option.RequestOption
		if cfg.OpenAIAPIKey != "" {
			clientOpts = append(clientOpts, option.WithAPIKey(cfg.OpenAIAPIKey))
		}
		client := openaisdk.NewClient(clientOpts...)
		return openai.NewModelFromClient(&client, func(o *openai.Options) {
			o.Model = name
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(name)
			o.APIKey = cfg.AnthropicAPIKey
		}), nil
	default:
		return nil, errors.New("unsupported model provider: " + cfg.Provider)
	}
}

func newWeatherTool(cfg *config.Settings) tool.Tool {
	return weather.New(func(o *weather.Options) {
		o.APIKey = cfg.WeatherAPIKey
		o.BaseURL = cfg.WeatherBaseURL
	})
}

func newStockTool(cfg *config.Settings) tool.Tool {
	return stock.New(func(o *stock.Options) {
		o.APIKey = cfg.AlpacaAPIKey
		o.APISecret = cfg.AlpacaAPISecret
		o.BaseURL = cfg.AlpacaBaseURL
	})
}

func newKnowledgeTool(cfg *config.Settings) tool.Tool {
	if cfg.KnowledgeURL == "" {
		return nil
	}
	retriever := knowledge.NewHTTPRetriever(cfg.KnowledgeURL, tool.SharedHTTPClient())
	return knowledge.New(retriever)
}

func newRecorder(cfg *config.Settings, logger logging.Logger) *observe.DatasetRecorder {
	if cfg.DatasetSinkURL == "" {
		return nil
	}
	sink := observe.NewHTTPSink(observe.HTTPSinkOptions{BaseURL: cfg.DatasetSinkURL})
	return observe.NewDatasetRecorder(sink, cfg.SupervisorModel, logger)
}
