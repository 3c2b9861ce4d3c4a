package middleware

import (
	"context"

	"github.com/veramoney/chatmesh/logging"
)

// FindingKind labels an advisory guardrail observation.
type FindingKind string

const (
	// FindingMissingCitation flags a knowledge-grounded answer without any
	// citation indicator.
	FindingMissingCitation FindingKind = "missing_citation"

	// FindingFabricatedCitation flags a document title mentioned in the
	// answer that none of the retrieved chunks carries.
	FindingFabricatedCitation FindingKind = "fabricated_citation"

	// FindingNumericMismatch flags a number in the answer that diverges from
	// the tool result beyond tolerance.
	FindingNumericMismatch FindingKind = "numeric_mismatch"
)

// Finding is one advisory guardrail observation. Findings are recorded, never
// enforced: the response reaches the user unchanged.
type Finding struct {
	Kind      FindingKind
	SessionID string
	Tool      string
	Detail    string
	Expected  float64
	Found     float64
}

// FindingRecorder receives guardrail findings.
type FindingRecorder interface {
	Record(ctx context.Context, f Finding)
}

// LogRecorder is the default FindingRecorder: it logs each finding at warn
// level.
type LogRecorder struct {
	logger logging.Logger
}

// NewLogRecorder constructs a LogRecorder.
func NewLogRecorder(logger logging.Logger) *LogRecorder {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogRecorder{logger: logger}
}

// Record implements FindingRecorder.
func (r *LogRecorder) Record(_ context.Context, f Finding) {
	switch f.Kind {
	case FindingNumericMismatch:
		r.logger.Warn("guardrail.finding",
			"kind", string(f.Kind),
			"session", f.SessionID,
			"tool", f.Tool,
			"expected", f.Expected,
			"found", f.Found,
		)
	default:
		r.logger.Warn("guardrail.finding",
			"kind", string(f.Kind),
			"session", f.SessionID,
			"tool", f.Tool,
			"detail", f.Detail,
		)
	}
}
