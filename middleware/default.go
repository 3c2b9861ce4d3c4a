package middleware

import "github.com/veramoney/chatmesh/logging"

// Default builds the standard pipeline in its fixed order: logging first,
// tool error translation on the tool side, then the advisory guardrails on
// the model side.
func Default(logger logging.Logger, recorder FindingRecorder) *Chain {
	if recorder == nil {
		recorder = NewLogRecorder(logger)
	}

	logMW := NewLogging(logger)

	return NewChain().
		UseModel(logMW, NewOutputGuardrails(recorder), NewCitationGuardrails(recorder)).
		UseTool(logMW, NewToolErrorTranslator(logger))
}
