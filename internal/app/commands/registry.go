package commands

import (
	"context"
	"fmt"
	"sync"
)

type rawHandler func(ctx context.Context, cmd Command) (any, error)

// Registry is the terminal bus: it routes each command to the handler
// registered under its key.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]rawHandler)}
}

func (r *Registry) Dispatch(ctx context.Context, cmd Command) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[cmd.Key()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, cmd.Key())
	}
	return h(ctx, cmd)
}

// Register binds handler to the key of C. Registering a key twice panics.
func Register[C Command, R any](r *Registry, handler Handler[C, R]) {
	if r == nil {
		panic("commands: nil registry")
	}
	var zero C
	key := zero.Key()
	if key == "" {
		panic("commands: empty key registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[key]; exists {
		panic("commands: duplicate handler for " + key)
	}
	r.handlers[key] = func(ctx context.Context, raw Command) (any, error) {
		cmd, ok := raw.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, key)
		}
		return handler.Handle(ctx, cmd)
	}
}
