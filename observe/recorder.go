package observe

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/veramoney/chatmesh/logging"
)

// Keyword lists used to infer which workers an opening message should reach.
// Spanish variants are included because the assistant serves bilingual users.
var (
	weatherKeywords   = []string{"weather", "temperature", "clima", "temperatura"}
	stockKeywords     = []string{"stock", "price", "acción", "precio"}
	knowledgeKeywords = []string{"vera", "fintech", "regulation", "bank"}
)

// InferExpectedTools guesses which workers a user message should trigger,
// based on keyword matching. Returns ["unknown"] when nothing matches.
func InferExpectedTools(message string) []string {
	lower := strings.ToLower(message)

	var expected []string
	if containsAny(lower, weatherKeywords) {
		expected = append(expected, "weather")
	}
	if containsAny(lower, stockKeywords) {
		expected = append(expected, "stock")
	}
	if containsAny(lower, knowledgeKeywords) {
		expected = append(expected, "knowledge")
	}

	if len(expected) == 0 {
		return []string{"unknown"}
	}
	return expected
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// DatasetRecorder samples live conversations into evaluation datasets.
// Deliveries run on background goroutines so recording never blocks a turn,
// and delivery failures are swallowed after a debug log.
type DatasetRecorder struct {
	sink   Sink
	model  string
	logger logging.Logger
	wg     sync.WaitGroup
}

// NewDatasetRecorder creates a recorder delivering through the given sink.
// The model name is attached to opening-message metadata.
func NewDatasetRecorder(sink Sink, model string, logger logging.Logger) *DatasetRecorder {
	if sink == nil {
		sink = NewNoOpSink()
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &DatasetRecorder{
		sink:   sink,
		model:  model,
		logger: logger,
	}
}

// RecordOpeningMessage records a session's first user message along with the
// workers it is expected to trigger.
func (r *DatasetRecorder) RecordOpeningMessage(sessionID, message string) {
	r.record(Item{
		Dataset: DatasetOpeningMessages,
		Input: map[string]any{
			"message":    message,
			"session_id": sessionID,
		},
		Metadata: map[string]any{
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
			"model":          r.model,
			"expected_tools": InferExpectedTools(message),
		},
	})
}

// RecordStockQuery records a stock price lookup together with the resolved
// ticker symbol.
func (r *DatasetRecorder) RecordStockQuery(sessionID, userMessage, ticker string) {
	if ticker == "" {
		ticker = "UNKNOWN"
	}

	r.record(Item{
		Dataset: DatasetStockQueries,
		Input: map[string]any{
			"query":  userMessage,
			"ticker": ticker,
		},
		Metadata: map[string]any{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"session_id": sessionID,
		},
	})
}

func (r *DatasetRecorder) record(item Item) {
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		// Detached from the request context on purpose: the turn must not
		// wait for, or be cancelled alongside, dataset delivery.
		if err := r.sink.Send(context.Background(), item); err != nil {
			r.logger.Debug("observe.record_failed", "dataset", item.Dataset, "error", err.Error())
		}
	}()
}

// Close waits for in-flight deliveries and closes the underlying sink.
func (r *DatasetRecorder) Close() error {
	r.wg.Wait()
	return r.sink.Close()
}
