package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler executes one operation against its external collaborator. Wrap
// reachability failures with ErrTransport; anything else is reported as a
// handler error.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Operation binds a symbolic name to a handler and its argument schema.
// Deliverable marks one-way notification operations, which are eligible for
// the local-fallback degrade path.
type Operation struct {
	Name        string
	Doc         string
	Schema      Schema
	Handler     Handler
	Deliverable bool
}

// Registry is the closed set of operations the pipeline may execute. It is
// populated once at startup and only read during a run; nothing is ever
// executed on an unrecognized name.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds an operation. Duplicate names are a wiring bug.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("operation name required")
	}
	if op.Handler == nil {
		return fmt.Errorf("operation %s: handler required", op.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[op.Name]; exists {
		return fmt.Errorf("operation %s already registered", op.Name)
	}
	r.ops[op.Name] = op
	return nil
}

// Resolve fetches an operation by name.
func (r *Registry) Resolve(name string) (Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	if !ok {
		return Operation{}, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return op, nil
}

// Names returns all registered operation names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe renders one operation signature per line for the subset of names
// given, for prompt construction.
func (r *Registry) Describe(names []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(names))
	for _, name := range names {
		op, ok := r.ops[name]
		if !ok {
			continue
		}
		line := op.Schema.Describe(op.Name)
		if op.Doc != "" {
			line += " - " + op.Doc
		}
		out = append(out, line)
	}
	return out
}
