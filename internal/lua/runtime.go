package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/jhellqvist/casambid/internal/config"
	"github.com/jhellqvist/casambid/internal/events/push"
	"github.com/jhellqvist/casambid/internal/lua/modules"
	"github.com/jhellqvist/casambid/internal/lua/modules/collect"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed
var ErrRuntimeClosed = fmt.Errorf("lua runtime closed")

// LuaWork represents work to be executed on the Lua VM
// All Lua execution MUST go through this to ensure thread safety
type LuaWork = func(ctx context.Context)

// Runtime manages the Lua VM with single-threaded execution
type Runtime struct {
	L      *lua.LState
	config *config.Config
	deps   RuntimeDeps

	// Modules
	casambiModule *modules.CasambiModule
	pushModule    *push.Module

	// Work queue for thread-safe Lua execution
	workQueue chan LuaWork

	// Shutdown signaling - closing this channel signals senders to stop
	// Using a channel in select is race-free (unlike mutex + bool)
	closing   chan struct{}
	closeOnce sync.Once
}

// NewRuntime creates a new Lua runtime
func NewRuntime(deps RuntimeDeps) *Runtime {
	r := &Runtime{
		L:         lua.NewState(),
		config:    deps.Config,
		deps:      deps,
		workQueue: make(chan LuaWork, 100),
		closing:   make(chan struct{}),
	}

	r.registerModules()

	return r
}

// Close signals the runtime to stop accepting new work and closes the Lua state.
// This is safe to call concurrently with Do/DoSync - they will see the closing signal.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.closing)
	})
	// Note: We don't close workQueue to avoid send-on-closed-channel panics.
	// The channel will be garbage collected when no longer referenced.
	// Run() will exit when it sees the closing signal.
	r.L.Close()
}

// LState returns the underlying Lua state.
// Only safe to touch from within Do/DoSync callbacks on the Lua worker.
func (r *Runtime) LState() *lua.LState {
	return r.L
}

// Do queues work to be executed on the Lua VM (thread-safe, non-blocking)
// Returns false if the runtime is closing, queue is full, or context is cancelled.
// Uses channel-based signaling for race-free shutdown detection.
func (r *Runtime) Do(ctx context.Context, work LuaWork) bool {
	select {
	case <-r.closing:
		log.Warn().Msg("Lua runtime closing, dropping work")
		return false
	case <-ctx.Done():
		log.Warn().Msg("Context cancelled, dropping Lua work")
		return false
	case r.workQueue <- work:
		return true
	default:
		log.Warn().Msg("Lua work queue full, dropping work")
		return false
	}
}

// DoSync queues work and blocks until there's space (thread-safe, blocking)
// Returns error if the runtime is closing or context is cancelled.
// Uses channel-based signaling for race-free shutdown detection.
func (r *Runtime) DoSync(ctx context.Context, work LuaWork) error {
	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case r.workQueue <- work:
		return nil
	}
}

// DoSyncWithResult queues work, waits for space, and waits for the result.
// Uses channel-based signaling for race-free shutdown detection.
func (r *Runtime) DoSyncWithResult(ctx context.Context, work func(context.Context) error) error {
	done := make(chan error, 1)
	wrappedWork := LuaWork(func(c context.Context) {
		done <- work(c)
	})

	// Queue the work
	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case r.workQueue <- wrappedWork:
		// Successfully queued
	}

	// Wait for result
	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// registerModules registers all Lua modules
func (r *Runtime) registerModules() {
	// Log module
	logModule := modules.NewLogModule()
	r.L.PreloadModule("log", logModule.Loader)

	// Utils module
	utilsModule := modules.NewUtilsModule()
	r.L.PreloadModule("utils", utilsModule.Loader)

	// KV module (persistent buckets backed by SQLite)
	kvModule := modules.NewKVModule(r.deps.KVManager)
	r.L.PreloadModule("kv", kvModule.Loader)

	// Collect module (event collection middleware factories)
	collectModule := collect.NewModule()
	r.L.PreloadModule("collect", collectModule.Loader)

	// Casambi control module
	r.casambiModule = modules.NewCasambiModule(r.deps.Controller)
	r.L.PreloadModule("casambi", r.casambiModule.Loader)

	// Event source module with dotted namespace
	// (unit changes, gateway transitions, wire connection state)
	r.pushModule = push.NewModule()
	r.L.PreloadModule("events.casambi", r.pushModule.Loader)
}

// Run starts the Lua worker goroutine - this is the ONLY goroutine that touches Lua
// It includes panic recovery to prevent crashes from killing the worker.
// Exits when context is cancelled or runtime is closed.
func (r *Runtime) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drainQueue(ctx)
			return
		case <-r.closing:
			r.drainQueue(ctx)
			return
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		}
	}
}

// drainQueue processes any remaining work in the queue before exiting
func (r *Runtime) drainQueue(ctx context.Context) {
	for {
		select {
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		default:
			return
		}
	}
}

// executeWork runs a single work item with panic recovery
func (r *Runtime) executeWork(ctx context.Context, work LuaWork) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Lua work panicked - worker continuing")
		}
	}()
	// Set context on LState so modules can access it via L.Context()
	r.L.SetContext(ctx)
	work(ctx)
}

// LoadScript loads and executes a Lua script (must be called before Run).
// A relative path that does not resolve from the working directory is
// retried relative to the config file's directory.
func (r *Runtime) LoadScript(path string) error {
	if !filepath.IsAbs(path) && r.config != nil && r.config.BaseDir != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = filepath.Join(r.config.BaseDir, path)
		}
	}

	log.Info().Str("path", path).Msg("Loading Lua script")

	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Msg("Lua script loaded successfully")
	return nil
}

// GetPushModule returns the push event module for handler registration
func (r *Runtime) GetPushModule() *push.Module {
	return r.pushModule
}
