package tools

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sanjuz-cas/SURF/internal/models"
)

// Dispatcher routes a ToolInvocation to its registered handler and
// normalizes the outcome into a ToolResult envelope. It holds no mutable
// state across calls beyond the fallback log's append cursor, so each
// pipeline run can own an independent instance.
type Dispatcher struct {
	registry *Registry
	fallback *FallbackLog
	logger   *log.Logger
}

func NewDispatcher(registry *Registry, fallback *FallbackLog, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{registry: registry, fallback: fallback, logger: logger}
}

// Registry exposes the dispatcher's operation set for prompt construction.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Invoke resolves, validates, and executes one operation.
//
// Failure policy:
//   - unknown operation or invalid arguments: Success=false, nothing executed
//   - transport failure on a deliverable operation: payload goes to the
//     local fallback log and the call reports Success=true with
//     Method=local_fallback; a missing notification channel never aborts
//     the pipeline
//   - transport failure on a data operation: Success=false; a read cannot
//     be faked because downstream steps depend on its payload
//   - any other handler failure: Success=false with the handler error
func (d *Dispatcher) Invoke(ctx context.Context, inv models.ToolInvocation) models.ToolResult {
	op, err := d.registry.Resolve(inv.Operation)
	if err != nil {
		return failure(err)
	}

	args, err := op.Schema.Validate(inv.Arguments)
	if err != nil {
		return failure(err)
	}

	payload, err := op.Handler(ctx, args)
	if err == nil {
		return models.ToolResult{Success: true, Payload: payload, Method: models.MethodPrimary}
	}

	if errors.Is(err, ErrTransport) {
		if op.Deliverable {
			return d.degrade(op, args, err)
		}
		return failure(err)
	}
	if errors.Is(err, ErrHandler) || errors.Is(err, ErrInvalidArguments) {
		return failure(err)
	}
	return failure(fmt.Errorf("%w: %v", ErrHandler, err))
}

// degrade records the undelivered payload locally and reports success via
// the fallback path. Only if the fallback log itself fails does the call
// surface an error.
func (d *Dispatcher) degrade(op Operation, args map[string]any, cause error) models.ToolResult {
	if d.fallback == nil {
		return failure(fmt.Errorf("%w; no fallback log configured", cause))
	}
	entry := FallbackEntry{
		Operation: op.Name,
		Arguments: args,
		Reason:    cause.Error(),
	}
	if err := d.fallback.Append(entry); err != nil {
		return failure(fmt.Errorf("%w; fallback log append failed: %v", cause, err))
	}
	d.logger.Printf("tools: %s unreachable, payload logged locally: %v", op.Name, cause)
	return models.ToolResult{
		Success: true,
		Payload: map[string]any{"delivered": false, "logged_locally": true},
		Method:  models.MethodLocalFallback,
	}
}

func failure(err error) models.ToolResult {
	return models.ToolResult{Success: false, Error: err.Error(), Method: models.MethodPrimary}
}
