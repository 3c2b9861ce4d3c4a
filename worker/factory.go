package worker

import (
	"github.com/veramoney/chatmesh/logging"
	"github.com/veramoney/chatmesh/middleware"
	"github.com/veramoney/chatmesh/model"
	"github.com/veramoney/chatmesh/tool"
)

// Factory builds the standard worker set with shared model, middleware and
// logging wiring.
type Factory struct {
	Model         model.Model
	Chain         *middleware.Chain
	Logger        logging.Logger
	MaxIterations int
}

// NewWeather builds the weather specialist around the given tool.
func (f *Factory) NewWeather(t tool.Tool) *Worker {
	return New(Config{
		Name:          "weather",
		Description:   "Route weather-related questions to the weather specialist. Use for: current weather, temperature, conditions, forecasts",
		Prompt:        weatherPrompt,
		Tool:          t,
		Model:         f.Model,
		MaxIterations: f.MaxIterations,
		Chain:         f.Chain,
		Logger:        f.Logger,
	})
}

// NewStock builds the stock price specialist around the given tool.
func (f *Factory) NewStock(t tool.Tool) *Worker {
	return New(Config{
		Name:          "stock",
		Description:   "Route stock market questions to the stock specialist. Use for: current stock prices, ticker quotes, price changes",
		Prompt:        stockPrompt,
		Tool:          t,
		Model:         f.Model,
		MaxIterations: f.MaxIterations,
		Chain:         f.Chain,
		Logger:        f.Logger,
	})
}

// NewKnowledge builds the knowledge base specialist around the given tool.
func (f *Factory) NewKnowledge(t tool.Tool) *Worker {
	return New(Config{
		Name:          "knowledge",
		Description:   "Route VeraMoney and regulation questions to the knowledge specialist. Use for: company history, Uruguayan fintech regulation, banking regulation",
		Prompt:        knowledgePrompt,
		Tool:          t,
		Model:         f.Model,
		MaxIterations: f.MaxIterations,
		Chain:         f.Chain,
		Logger:        f.Logger,
	})
}
