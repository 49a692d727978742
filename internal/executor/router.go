package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Router runs submissions on the first healthy runner in registration order.
type Router struct {
	runners  map[string]Runner
	fallback []string // ordered fallback chain
	mu       sync.RWMutex
}

// NewRouter creates a new executor router.
func NewRouter() *Router {
	return &Router{
		runners: make(map[string]Runner),
	}
}

// Register adds a runner to the router.
func (r *Router) Register(name string, runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[name] = runner
	r.fallback = append(r.fallback, name)
}

// Run tries each runner in fallback order.
func (r *Router) Run(ctx context.Context, sub Submission) (Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.fallback {
		res, err := r.runners[name].Run(ctx, sub)
		if err != nil {
			slog.Warn("code runner failed, trying next",
				"runner", name,
				"error", err,
			)
			continue
		}

		slog.Debug("code run completed",
			"runner", name,
			"language_id", sub.LanguageID,
			"exit_code", res.ExitCode,
		)
		return res, nil
	}

	return Result{}, fmt.Errorf("all code runners failed")
}

// HealthCheck succeeds when at least one runner is healthy.
func (r *Router) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.fallback {
		if err := r.runners[name].HealthCheck(ctx); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no healthy code runner")
}

// HasRunner returns true if at least one runner is registered.
func (r *Router) HasRunner() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runners) > 0
}
