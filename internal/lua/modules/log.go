package modules

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/jhellqvist/casambid/internal/lua/exec"
)

// LogModule exposes the zerolog logger to scripts. Every entry carries
// source=lua so daemon and script output stay distinguishable.
type LogModule struct{}

// NewLogModule creates a new log module.
func NewLogModule() *LogModule {
	return &LogModule{}
}

// Loader is the module loader for Lua.
func (m *LogModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "debug", L.NewFunction(emit(zerolog.DebugLevel)))
	L.SetField(mod, "info", L.NewFunction(emit(zerolog.InfoLevel)))
	L.SetField(mod, "warn", L.NewFunction(emit(zerolog.WarnLevel)))
	L.SetField(mod, "error", L.NewFunction(emit(zerolog.ErrorLevel)))

	L.Push(mod)
	return 1
}

// emit builds a log function for one level. Scripts call it as
// log.info(msg, { key = value, ... }); the fields table is optional.
func emit(level zerolog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)

		ev := log.WithLevel(level).Str("source", "lua")
		if fields, ok := L.Get(2).(*lua.LTable); ok {
			fields.ForEach(func(k, v lua.LValue) {
				ev = ev.Interface(lua.LVAsString(k), exec.FromLua(v))
			})
		}
		ev.Msg(msg)

		return 0
	}
}
