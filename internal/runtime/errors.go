package runtime

import "fmt"

// Error codes for evaluator-level failures, mirrored from the
// teacher's pkg/runtime/sandbox deterministic error code table but
// renamed to the evaluation vocabulary (spec.md §4.6 failure modes).
const (
	ErrEvaluationTrap   = "ERR_EVALUATION_TRAP"
	ErrEvaluationTimeout = "ERR_EVALUATION_TIMEOUT"
	ErrEvaluationOutput = "ERR_EVALUATION_OUTPUT_EXHAUSTED"
)

// EvaluationError reports a runtime-level failure distinct from a
// malformed verb: a trap, timeout, or oversized output (spec.md §4.6:
// "Runtime trap ... surface as an evaluation error").
type EvaluationError struct {
	Code    string
	Message string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
