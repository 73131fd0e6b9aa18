package pipeline

import "errors"

// Step failure kinds. Any of these halts the run: downstream stages must
// never operate on fabricated or missing upstream data.
var (
	// ErrMalformedOutput: the reasoning capability's final text still did
	// not parse as JSON after the bounded re-prompt attempts.
	ErrMalformedOutput = errors.New("malformed output")

	// ErrContractViolation: the parsed payload is missing required keys.
	ErrContractViolation = errors.New("contract violation")

	// ErrOperationNotAllowed: a step requested an operation outside its
	// declared capability set. A wiring bug, never retried.
	ErrOperationNotAllowed = errors.New("operation not allowed for step")

	// ErrToolFailed: a dispatched invocation resolved to success=false.
	ErrToolFailed = errors.New("tool invocation failed")

	// ErrInterrupted: the run's context was canceled mid-step.
	ErrInterrupted = errors.New("step interrupted")
)
