// Package tool provides the fixed catalog of capabilities the model may
// invoke, with schema-described definitions and failure-capturing dispatch.
package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/capitalize-ai/assistant-gateway/internal/model"
)

// ExecContext carries per-call execution scope for a tool invocation. It is
// threaded explicitly through every Execute call; tools never read scope
// from shared state.
type ExecContext struct {
	// Collections limits the retrieval tool to the given document
	// collections. Opaque to the orchestration logic.
	Collections []int64
}

// Handler runs the business logic of one tool call.
type Handler func(ctx context.Context, ec ExecContext, input map[string]any) (any, error)

// Tool is a named, immutable capability. ForWhom determines whether the raw
// invocation output is shown to the human or only fed back to the model.
type Tool struct {
	Definition model.ToolDefinition
	ForWhom    model.Audience
	handler    Handler
}

// New creates a tool from its definition, visibility, and handler.
func New(definition model.ToolDefinition, forWhom model.Audience, handler Handler) Tool {
	return Tool{
		Definition: definition,
		ForWhom:    forWhom,
		handler:    handler,
	}
}

// Registry is the process-wide tool catalog, constructed once at startup.
type Registry struct {
	tools   map[string]Tool
	order   []string
	timeout time.Duration
}

// NewRegistry builds a registry over a fixed set of tools. Every execution
// is bounded by the given timeout.
func NewRegistry(timeout time.Duration, tools ...Tool) *Registry {
	r := &Registry{
		tools:   make(map[string]Tool, len(tools)),
		timeout: timeout,
	}
	for _, t := range tools {
		if _, exists := r.tools[t.Definition.Name]; exists {
			continue
		}
		r.tools[t.Definition.Name] = t
		r.order = append(r.order, t.Definition.Name)
	}
	return r
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the schema snapshot offered to the model, in
// registration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Execute dispatches a tool call by name. It never returns an error: unknown
// names, handler failures, panics, and timeouts are all captured into the
// exception variant of the outcome so the caller can always serialize it.
func (r *Registry) Execute(ctx context.Context, name string, ec ExecContext, input map[string]any) model.ToolOutcome {
	t, ok := r.tools[name]
	if !ok {
		return model.FailureOutcome("Function name is not valid")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type execResult struct {
		value any
		err   error
	}
	done := make(chan execResult, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- execResult{err: fmt.Errorf("tool %q panicked: %v", name, p)}
			}
		}()
		value, err := t.handler(ctx, ec, input)
		done <- execResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return model.FailureOutcome(res.err.Error())
		}
		return model.SuccessOutcome(res.value)
	case <-ctx.Done():
		return model.FailureOutcome(fmt.Sprintf("tool %q did not complete within %s", name, r.timeout))
	}
}
