package tools

import "errors"

// Error taxonomy for tool dispatch. Handlers wrap network/database
// reachability problems with ErrTransport so the dispatcher can tell a dead
// collaborator apart from a handler bug.
var (
	// ErrUnknownOperation: the requested operation name is not registered.
	// A wiring bug; never retried.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidArguments: the argument bag failed schema validation. The
	// handler is never executed.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrTransport: the external collaborator is unreachable.
	ErrTransport = errors.New("transport error")

	// ErrHandler: the handler executed but its own logic failed.
	ErrHandler = errors.New("handler error")
)
