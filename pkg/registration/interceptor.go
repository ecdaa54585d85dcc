package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var ErrNotBoolean = errors.New("interceptor expression did not evaluate to a boolean")

// Interceptor decides whether a registration may proceed.
type Interceptor interface {
	Execute(ctx context.Context, attributes map[string]string, person *Person, params map[string][]string) (bool, error)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(ctx context.Context, attributes map[string]string, person *Person, params map[string][]string) (bool, error)

func (f InterceptorFunc) Execute(ctx context.Context, attributes map[string]string, person *Person, params map[string][]string) (bool, error) {
	return f(ctx, attributes, person, params)
}

// Registry holds Go-native interceptors addressed by script name.
type Registry struct {
	mu           sync.RWMutex
	interceptors map[string]Interceptor
}

func NewRegistry() *Registry {
	return &Registry{interceptors: make(map[string]Interceptor)}
}

// Register adds or replaces the interceptor for name.
func (r *Registry) Register(name string, i Interceptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interceptors[name] = i
}

// Lookup returns the interceptor registered for name.
func (r *Registry) Lookup(name string) (Interceptor, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.interceptors[name]
	return i, ok
}

// CELEngine compiles interceptor scripts written as CEL expressions over
// the variables person, params and attributes. Compiled programs are
// cached by source text.
type CELEngine struct {
	env      *cel.Env
	mu       sync.Mutex
	programs map[string]cel.Program
}

func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("person", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("params", cel.MapType(cel.StringType, cel.ListType(cel.StringType))),
		cel.Variable("attributes", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CELEngine{env: env, programs: make(map[string]cel.Program)}, nil
}

// Compile returns an Interceptor evaluating expr.
func (e *CELEngine) Compile(expr string) (Interceptor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.programs[expr]; ok {
		return &celInterceptor{program: prg}, nil
	}

	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", iss.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build program: %w", err)
	}
	e.programs[expr] = prg
	return &celInterceptor{program: prg}, nil
}

type celInterceptor struct {
	program cel.Program
}

func (c *celInterceptor) Execute(ctx context.Context, attributes map[string]string, person *Person, params map[string][]string) (bool, error) {
	if attributes == nil {
		attributes = map[string]string{}
	}
	celParams := make(map[string]any, len(params))
	for k, v := range params {
		celParams[k] = v
	}

	out, _, err := c.program.ContextEval(ctx, map[string]any{
		"person":     person.toMap(),
		"params":     celParams,
		"attributes": attributes,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate expression: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, ErrNotBoolean
	}
	return result, nil
}
