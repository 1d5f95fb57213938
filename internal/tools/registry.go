package tools

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/nextlive/nextlive/internal/session"
)

// Registry holds the closed tool set and dispatches function calls.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	order  []string
	byName map[string]Executor
	logger *slog.Logger
}

// NewRegistry creates a registry over the given executors. Declaration
// order is preserved, so the model always sees the tools in a stable
// order. Duplicate names are a construction error.
func NewRegistry(logger *slog.Logger, execs ...Executor) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		byName: make(map[string]Executor, len(execs)),
		logger: logger,
	}
	for _, e := range execs {
		name := e.Name()
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		r.byName[name] = e
		r.order = append(r.order, name)
	}
	return r, nil
}

// Names returns the tool names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Declarations returns the parameter schemas advertised to the model.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.byName[name].Declaration())
	}
	return decls
}

// Dispatch routes a function call to the executor matching its name.
// Unknown names and executor panics surface as failed Results, keeping
// the tool boundary exception-free.
func (r *Registry) Dispatch(ctx context.Context, call session.FunctionCall) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", call.Name, "panic", rec)
			result = Errorf("internal error executing %s", call.Name)
		}
	}()

	exec, ok := r.byName[call.Name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", call.Name)
		return Errorf("unknown tool %q", call.Name)
	}

	r.logger.Debug("dispatching tool", "tool", call.Name)
	return exec.Execute(ctx, call.Args)
}
