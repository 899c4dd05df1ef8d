package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/token/contract"
	"github.com/xraph/token/transfer"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages registered plugins. Hook implementations are cached per
// interface at registration so dispatch never type-asserts.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit             []OnInit
	onShutdown         []OnShutdown
	onTokenDeployed    []OnTokenDeployed
	onTransfer         []OnTransfer
	onTransferRejected []OnTransferRejected
	onJournalFlushed   []OnJournalFlushed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its hooks.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnTokenDeployed); ok {
		r.onTokenDeployed = append(r.onTokenDeployed, v)
		hooks = append(hooks, "OnTokenDeployed")
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
		hooks = append(hooks, "OnTransfer")
	}
	if v, ok := p.(OnTransferRejected); ok {
		r.onTransferRejected = append(r.onTransferRejected, v)
		hooks = append(hooks, "OnTransferRejected")
	}
	if v, ok := p.(OnJournalFlushed); ok {
		r.onJournalFlushed = append(r.onJournalFlushed, v)
		hooks = append(hooks, "OnJournalFlushed")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnInit", p, func() error { return p.OnInit(ctx, l) })
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnShutdown", p, func() error { return p.OnShutdown(ctx) })
	}
}

// EmitTokenDeployed emits a token deployed event.
func (r *Registry) EmitTokenDeployed(ctx context.Context, t *contract.Token) {
	r.mu.RLock()
	plugins := r.onTokenDeployed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnTokenDeployed", p, func() error { return p.OnTokenDeployed(ctx, t) })
	}
}

// EmitTransfer emits a transfer applied event.
func (r *Registry) EmitTransfer(ctx context.Context, rec *transfer.Record) {
	r.mu.RLock()
	plugins := r.onTransfer
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnTransfer", p, func() error { return p.OnTransfer(ctx, rec) })
	}
}

// EmitTransferRejected emits a transfer rejected event.
func (r *Registry) EmitTransferRejected(ctx context.Context, rej *Rejection) {
	r.mu.RLock()
	plugins := r.onTransferRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnTransferRejected", p, func() error { return p.OnTransferRejected(ctx, rej) })
	}
}

// EmitJournalFlushed emits a journal flushed event.
func (r *Registry) EmitJournalFlushed(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onJournalFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnJournalFlushed", p, func() error { return p.OnJournalFlushed(ctx, count, elapsed) })
	}
}

func (r *Registry) call(ctx context.Context, hook string, p Plugin, fn func() error) {
	if err := r.callWithTimeout(ctx, p.Name(), fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", p.Name(),
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block a transfer.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
