// Package observability provides hooks for timing and tracing a run.
//
// Libraries report events through the registered hooks; nothing is
// recorded unless the application registers an implementation at startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetCommandHooks(&myCommandHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnPhaseStart(ctx, observability.PhaseCheck, pkg)
//	// ... classify packages ...
//	observability.Pipeline().OnPhaseComplete(ctx, observability.PhaseCheck, pkg, count, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Phases of a run reported to PipelineHooks.
const (
	PhasePlan   = "plan"
	PhaseCheck  = "check"
	PhaseVerify = "verify"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the check and verify phases. count is
// the number of packages planned or checked, or artifacts verified.
type PipelineHooks interface {
	OnPhaseStart(ctx context.Context, phase, pkg string)
	OnPhaseComplete(ctx context.Context, phase, pkg string, count int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Command Hooks
// =============================================================================

// CommandHooks receives events from cargo invocations.
type CommandHooks interface {
	// OnCommand records a command about to run.
	OnCommand(ctx context.Context, name string, args []string)

	// OnCommandComplete records a finished command; err is nil on success.
	OnCommandComplete(ctx context.Context, name string, args []string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnPhaseStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnPhaseComplete(context.Context, string, string, int, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopCommandHooks is a no-op implementation of CommandHooks.
type NoopCommandHooks struct{}

func (NoopCommandHooks) OnCommand(context.Context, string, []string) {}
func (NoopCommandHooks) OnCommandComplete(context.Context, string, []string, time.Duration, error) {
}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	commandHooks  CommandHooks  = NoopCommandHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks. nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetCommandHooks registers custom command hooks. nil is ignored.
func SetCommandHooks(h CommandHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		commandHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Command returns the registered command hooks.
func Command() CommandHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return commandHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	commandHooks = NoopCommandHooks{}
}

// RunCommand wraps fn in the command hooks.
func RunCommand(ctx context.Context, name string, args []string, fn func() error) error {
	h := Command()
	h.OnCommand(ctx, name, args)
	start := time.Now()
	err := fn()
	h.OnCommandComplete(ctx, name, args, time.Since(start), err)
	return err
}
