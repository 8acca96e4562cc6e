package logic

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Lifecycle messages carry the logic
// name, action type and lifecycle id as fields when the logger supports it.
func WithLogger(logger Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDeps injects values exposed to every logic as Deps.Extra.
func WithDeps(deps map[string]any) Option {
	return func(e *Engine) {
		e.deps = deps
	}
}

// WithProcessOrder selects how process hooks sharing an action are ordered.
func WithProcessOrder(order ProcessOrder) Option {
	return func(e *Engine) {
		e.order = order
	}
}

// WithIDGenerator replaces the uuid lifecycle id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}
