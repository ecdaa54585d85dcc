package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ConfigurationSource supplies the registration configuration of the
// organization.
type ConfigurationSource interface {
	RegistrationConfiguration(ctx context.Context) (*Configuration, error)
}

// InterceptionService runs the registration interceptors configured on the
// organization.
type InterceptionService struct {
	source   ConfigurationSource
	registry *Registry
	engine   *CELEngine
}

// NewInterceptionService creates the service. registry may be nil.
func NewInterceptionService(source ConfigurationSource, registry *Registry, engine *CELEngine) *InterceptionService {
	return &InterceptionService{
		source:   source,
		registry: registry,
		engine:   engine,
	}
}

// RunInitRegistration runs the init scripts before the registration form is shown.
func (s *InterceptionService) RunInitRegistration(ctx context.Context, person *Person, params map[string][]string) bool {
	return s.run(ctx, ScriptTypeInit, person, params)
}

// RunPreRegistration runs the pre scripts before the person is persisted.
func (s *InterceptionService) RunPreRegistration(ctx context.Context, person *Person, params map[string][]string) bool {
	return s.run(ctx, ScriptTypePre, person, params)
}

// RunPostRegistration runs the post scripts after the person is persisted.
func (s *InterceptionService) RunPostRegistration(ctx context.Context, person *Person, params map[string][]string) bool {
	return s.run(ctx, ScriptTypePost, person, params)
}

// run evaluates every active script of type t and AND-combines the results.
// All scripts run even after one returns false.
func (s *InterceptionService) run(ctx context.Context, t ScriptType, person *Person, params map[string][]string) bool {
	config, err := s.source.RegistrationConfiguration(ctx)
	if err != nil {
		slog.Error("Failed to load registration configuration", "type", t, "err", err)
		return false
	}
	if config == nil || !config.InterceptorsConfigured {
		return true
	}

	scripts := config.ActiveScripts(t)
	if len(scripts) == 0 {
		return true
	}

	result := true
	for _, script := range scripts {
		ok := s.execute(ctx, script, person, params)
		slog.Debug("Registration interceptor executed", "name", script.Name, "type", t, "result", ok)
		result = result && ok
	}
	return result
}

// ValidateScript reports whether script can be loaded: it must name a
// registered interceptor or carry an expression that compiles.
func (s *InterceptionService) ValidateScript(script InterceptorScript) error {
	if _, ok := s.registry.Lookup(script.Name); ok {
		return nil
	}
	if script.Script == "" {
		return fmt.Errorf("interceptor %q has no script and is not registered", script.Name)
	}
	if s.engine == nil {
		return errors.New("no script engine configured")
	}
	if _, err := s.engine.Compile(script.Script); err != nil {
		return fmt.Errorf("interceptor %q: %w", script.Name, err)
	}
	return nil
}

func (s *InterceptionService) execute(ctx context.Context, script InterceptorScript, person *Person, params map[string][]string) bool {
	interceptor, ok := s.registry.Lookup(script.Name)
	if !ok {
		if script.Script == "" {
			slog.Error("Registration interceptor has no script", "name", script.Name)
			return false
		}
		if s.engine == nil {
			slog.Error("No script engine for registration interceptor", "name", script.Name)
			return false
		}
		compiled, err := s.engine.Compile(script.Script)
		if err != nil {
			slog.Error("Failed to load registration interceptor", "name", script.Name, "err", err)
			return false
		}
		interceptor = compiled
	}

	allowed, err := interceptor.Execute(ctx, script.CustomAttributes, person, params)
	if err != nil {
		slog.Error("Registration interceptor failed", "name", script.Name, "err", err)
		return false
	}
	return allowed
}
