package store

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Hook is a post-commit side effect.
type Hook func(ctx context.Context)

// Hooks collects post-commit side effects for one atomic unit.
type Hooks struct {
	hooks []Hook
}

func (h *Hooks) Add(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// Run dispatches every hook on its own goroutine with a context that
// outlives the caller's request. Panics are recovered and logged.
func (h *Hooks) Run(ctx context.Context, log *logrus.Logger) {
	detached := context.WithoutCancel(ctx)
	for _, hook := range h.hooks {
		go func(hook Hook) {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("Post-commit hook panicked: %v", r)
				}
			}()
			hook(detached)
		}(hook)
	}
	h.hooks = nil
}
