// Package tools holds the Tool interface, the registry that dispatches
// invocations by name, and every concrete tool from the catalogue: file
// operations, search, shell execution, web access, and the todo tracker.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentichat/agentichat/errors"
)

// ConfirmPolicy is a tool's declared confirmation requirement.
type ConfirmPolicy string

const (
	ConfirmNever         ConfirmPolicy = "never"
	ConfirmOnDestructive ConfirmPolicy = "on_destructive"
	ConfirmAlways        ConfirmPolicy = "always"
)

// Descriptor describes a tool for schema generation and dispatch.
type Descriptor struct {
	Name        string
	Description string
	// Parameters is a JSON-schema object (type "object" with "properties").
	Parameters map[string]interface{}
	Required   []string
	Confirm    ConfirmPolicy
}

// Schema is the wire shape handed to a backend's tool list.
type Schema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Result is the structured outcome of a tool invocation.
type Result struct {
	Success   bool        `json:"success"`
	Payload   interface{} `json:"-"`
	Error     string      `json:"error,omitempty"`
	ErrorKind errors.Kind `json:"-"`
	Truncated bool        `json:"_truncated,omitempty"`
}

// Tool is the interface every concrete capability implements.
type Tool interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, args map[string]interface{}) (*Result, error)
}

// Registry holds the mapping from tool name to Tool, and memoizes the JSON
// schema array consumed once per agent-loop iteration.
type Registry struct {
	mu          sync.Mutex
	tools       map[string]Tool
	order       []string
	schemaCache []Schema
	cacheValid  bool
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool, invalidating the schema memo.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Descriptor().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
	r.cacheValid = false
}

// ListNames returns every registered tool name in registration order.
func (r *Registry) ListNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptor returns the named tool's descriptor, if registered.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tools[name]
	if !ok {
		return Descriptor{}, false
	}
	return t.Descriptor(), true
}

// Schemas returns the JSON-schema array consumed by backends, memoized
// until the next Register call.
func (r *Registry) Schemas() []Schema {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cacheValid {
		return r.schemaCache
	}
	schemas := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		d := r.tools[name].Descriptor()
		schemas = append(schemas, Schema{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	r.schemaCache = schemas
	r.cacheValid = true
	return schemas
}

// RequiresConfirmation reports whether the named tool's policy demands a
// Confirmation Manager check before execution (SPEC_FULL.md §4.2).
func (r *Registry) RequiresConfirmation(name string) bool {
	d, ok := r.Descriptor(name)
	if !ok {
		return false
	}
	return d.Confirm == ConfirmAlways || d.Confirm == ConfirmOnDestructive
}

// Execute validates that required parameters are present and dispatches to
// the named tool, always returning a structured Result — including for an
// unregistered name or a missing argument — so a hallucinated tool call from
// the free-text extraction pipeline becomes a tool message the model can see
// and recover from, rather than aborting the turn. An error returned by the
// tool's own Execute is folded into a failed Result as well, so the error
// return is always nil.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (*Result, error) {
	r.mu.Lock()
	t, ok := r.tools[name]
	r.mu.Unlock()
	if !ok {
		return &Result{
			Success:   false,
			Error:     fmt.Sprintf("tool %q is not registered", name),
			ErrorKind: errors.KindToolNotAvailable,
		}, nil
	}

	d := t.Descriptor()
	for _, req := range d.Required {
		if _, present := args[req]; !present {
			return &Result{
				Success:   false,
				Error:     "missing required argument: " + req,
				ErrorKind: errors.KindCommandFailed,
			}, nil
		}
	}

	result, err := t.Execute(ctx, args)
	if err != nil {
		kind := errors.KindOf(err)
		if kind == errors.KindUnknown {
			kind = errors.KindCommandFailed
		}
		return &Result{Success: false, Error: err.Error(), ErrorKind: kind}, nil
	}
	return result, nil
}
