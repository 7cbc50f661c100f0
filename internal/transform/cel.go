package transform

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// celFilter is a compiled CEL predicate over a record. The record's
// attributes are bound to the variable "item" and its resource key to
// "resource".
type celFilter struct {
	expression string
	program    cel.Program
}

func newCELEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("resource", cel.StringType),
	)
}

func compileFilter(expression string) (*celFilter, error) {
	env, err := newCELEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: failed to compile filter: %w", ErrInvalidRule, issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create program: %w", ErrInvalidRule, err)
	}

	return &celFilter{expression: expression, program: program}, nil
}

// Match evaluates the predicate.
func (f *celFilter) Match(ctx context.Context, resource string, attrs map[string]any) (bool, error) {
	result, _, err := f.program.ContextEval(ctx, map[string]any{
		"item":     attrs,
		"resource": resource,
	})
	if err != nil {
		return false, fmt.Errorf("filter %q: %w", f.expression, err)
	}

	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %T", ErrFilterResult, f.expression, result.Value())
	}
	return matched, nil
}
