package app

import (
	"context"

	"github.com/jhellqvist/casambid/internal/casambi"
	"github.com/jhellqvist/casambid/internal/config"
	"github.com/jhellqvist/casambid/internal/events/push"
	luart "github.com/jhellqvist/casambid/internal/lua"
	"github.com/jhellqvist/casambid/internal/storage/kv"

	glua "github.com/yuin/gopher-lua"
)

// LuaService wraps the Lua runtime and provides thread-safe execution.
type LuaService struct {
	cfg     *config.Config
	Runtime *luart.Runtime
}

// NewLuaService creates a new LuaService.
func NewLuaService(cfg *config.Config, controller *casambi.Controller, kvManager *kv.Manager) *LuaService {
	runtime := luart.NewRuntime(luart.RuntimeDeps{
		Config:     cfg,
		Controller: controller,
		KVManager:  kvManager,
	})

	return &LuaService{
		cfg:     cfg,
		Runtime: runtime,
	}
}

// LoadScript loads and executes the Lua script.
// Must be called before Start().
func (s *LuaService) LoadScript() error {
	return s.Runtime.LoadScript(s.cfg.Script)
}

// Start begins the Lua worker goroutine.
// This is the ONLY goroutine that touches Lua.
func (s *LuaService) Start(ctx context.Context) {
	go s.Runtime.Run(ctx)
}

// GetPushModule returns the push event module for handler registration.
func (s *LuaService) GetPushModule() *push.Module {
	return s.Runtime.GetPushModule()
}

// Do queues work to be executed on the Lua VM.
func (s *LuaService) Do(ctx context.Context, work luart.LuaWork) bool {
	return s.Runtime.Do(ctx, work)
}

// LState returns the Lua state for use within Do callbacks only.
func (s *LuaService) LState() *glua.LState {
	return s.Runtime.LState()
}

// Close closes the Lua runtime.
func (s *LuaService) Close() {
	if s.Runtime != nil {
		s.Runtime.Close()
	}
}
