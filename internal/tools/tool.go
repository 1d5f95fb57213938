// Package tools declares the closed set of tools the assistant can invoke
// and dispatches model function calls to their executors.
//
// The set is fixed: getFile, editFile, imageGen, executeCommand. Dispatch
// selects the executor strictly by the call's declared name; argument
// shapes are validated against the named tool's schema and a mismatch is a
// dispatch error, never a duck-typed guess.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// Tool names, as declared to the model.
const (
	ToolGetFile        = "getFile"
	ToolEditFile       = "editFile"
	ToolImageGen       = "imageGen"
	ToolExecuteCommand = "executeCommand"
)

// Executor is one side-effecting tool implementation. Execute never panics
// across the boundary and never returns a Go error: every failure is
// reported in-band as Result{Success: false}.
type Executor interface {
	// Name returns the declared tool name dispatch keys on.
	Name() string

	// Declaration returns the parameter schema advertised to the model.
	Declaration() *genai.FunctionDeclaration

	// Execute runs the tool against raw call arguments.
	Execute(ctx context.Context, args map[string]any) Result
}

// funcTool adapts a declaration plus a function to the Executor interface.
type funcTool struct {
	decl *genai.FunctionDeclaration
	run  func(context.Context, map[string]any) Result
}

func (t *funcTool) Name() string                            { return t.decl.Name }
func (t *funcTool) Declaration() *genai.FunctionDeclaration { return t.decl }

func (t *funcTool) Execute(ctx context.Context, args map[string]any) Result {
	return t.run(ctx, args)
}

// NewTool builds an Executor from a declaration and a run function.
func NewTool(decl *genai.FunctionDeclaration, run func(context.Context, map[string]any) Result) Executor {
	return &funcTool{decl: decl, run: run}
}

// decodeArgs converts the raw argument map into the tool's typed input via
// a JSON round trip, the same way the SDK delivers structured values.
func decodeArgs[T any](args map[string]any) (T, error) {
	var in T
	data, err := json.Marshal(args)
	if err != nil {
		return in, fmt.Errorf("encoding arguments: %w", err)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("arguments do not match schema: %w", err)
	}
	return in, nil
}

// requireString checks that a required string parameter is present and
// non-empty in the raw argument map.
func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string", key)
	}
	if s == "" {
		return "", fmt.Errorf("parameter %q must not be empty", key)
	}
	return s, nil
}

// requireBool checks that a required boolean parameter is present.
func requireBool(args map[string]any, key string) (bool, error) {
	v, ok := args[key]
	if !ok {
		return false, fmt.Errorf("missing required parameter %q", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %q must be a boolean", key)
	}
	return b, nil
}
