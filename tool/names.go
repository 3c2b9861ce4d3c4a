package tool

// Canonical tool names exposed to the models.
const (
	WeatherToolName   = "get_weather"
	StockToolName     = "get_stock_price"
	KnowledgeToolName = "search_knowledge"
)

// serviceNames maps tool names to the user-facing service label used when a
// tool failure is translated into a user-safe message.
var serviceNames = map[string]string{
	WeatherToolName:   "weather data",
	StockToolName:     "stock market data",
	KnowledgeToolName: "knowledge base",
}

// ServiceName returns the user-facing label for a tool's upstream service.
// Unknown tools fall back to a generic label.
func ServiceName(toolName string) string {
	if name, ok := serviceNames[toolName]; ok {
		return name
	}
	return "the requested service"
}
