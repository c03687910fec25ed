package lua

import (
	"github.com/jhellqvist/casambid/internal/casambi"
	"github.com/jhellqvist/casambid/internal/config"
	"github.com/jhellqvist/casambid/internal/storage/kv"
)

// RuntimeDeps groups all dependencies needed by Lua runtime.
// This reduces constructor parameter count and makes dependencies explicit.
type RuntimeDeps struct {
	Config     *config.Config
	Controller *casambi.Controller
	KVManager  *kv.Manager
}
