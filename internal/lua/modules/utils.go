package modules

import (
	"time"

	lua "github.com/yuin/gopher-lua"
)

// UtilsModule holds small helpers that do not warrant a module of
// their own.
type UtilsModule struct{}

// NewUtilsModule creates a new utils module.
func NewUtilsModule() *UtilsModule {
	return &UtilsModule{}
}

// Loader is the module loader for Lua.
func (m *UtilsModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "sleep", L.NewFunction(m.sleep))

	L.Push(mod)
	return 1
}

// sleep(ms) pauses the script. The whole Lua worker blocks for the
// duration; shutdown cancellation cuts the sleep short.
func (m *UtilsModule) sleep(L *lua.LState) int {
	d := time.Duration(L.CheckInt(1)) * time.Millisecond

	ctx := L.Context()
	if ctx == nil {
		time.Sleep(d)
		return 0
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return 0
}
