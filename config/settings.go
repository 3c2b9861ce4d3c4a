package config

import "time"

// Settings is the full application configuration, loaded from CHATMESH_*
// environment variables.
type Settings struct {
	// HTTP server
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Model providers
	Provider         string `envconfig:"PROVIDER" default:"openai"`
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey  string `envconfig:"ANTHROPIC_API_KEY"`
	SupervisorModel  string `envconfig:"SUPERVISOR_MODEL" default:"gpt-4o"`
	WorkerModel      string `envconfig:"WORKER_MODEL" default:"gpt-4o-mini"`
	MaxModelCalls    int    `envconfig:"MAX_MODEL_CALLS" default:"10"`
	WorkerIterations int    `envconfig:"WORKER_ITERATIONS" default:"5"`

	// Per-run deadline covering reasoning, dispatch and synthesis.
	RunTimeout time.Duration `envconfig:"RUN_TIMEOUT" default:"30s"`

	// Session storage. Empty DSN selects the in-memory store.
	DatabaseDSN string `envconfig:"DATABASE_DSN"`

	// Upstream tool services
	WeatherAPIKey   string `envconfig:"WEATHER_API_KEY"`
	WeatherBaseURL  string `envconfig:"WEATHER_BASE_URL" default:"https://api.weatherapi.com/v1"`
	AlpacaAPIKey    string `envconfig:"ALPACA_API_KEY"`
	AlpacaAPISecret string `envconfig:"ALPACA_API_SECRET"`
	AlpacaBaseURL   string `envconfig:"ALPACA_BASE_URL" default:"https://data.alpaca.markets/v2"`
	KnowledgeURL    string `envconfig:"KNOWLEDGE_URL"`

	// Observability sink for conversation datasets. Empty disables recording.
	DatasetSinkURL string `envconfig:"DATASET_SINK_URL"`

	// Logging
	LogDebug  bool `envconfig:"LOG_DEBUG" default:"false"`
	LogPretty bool `envconfig:"LOG_PRETTY" default:"false"`
}
