// Package collect exposes the event batching strategies to Lua. A
// script picks one per handler:
//
//	events.on_unit("*", fn, { middleware = collect.quiet(500, reducer) })
package collect

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/jhellqvist/casambid/internal/events/middleware"
)

const specTypeName = "collect_spec"

// Spec describes the strategy a script chose. The collector itself is
// built later, once the handler's sink is known.
type Spec struct {
	strategy string
	window   time.Duration
	count    int

	// Reducer folds a flushed batch into the single table the handler
	// receives. Nil means the handler gets the last event of the batch.
	Reducer *lua.LFunction
}

// Build creates the collector feeding the given sink.
func (s *Spec) Build(sink middleware.Sink) middleware.Collector {
	switch s.strategy {
	case "quiet":
		return middleware.NewQuiet(s.window, sink)
	case "count":
		return middleware.NewCount(s.count, sink)
	case "interval":
		return middleware.NewInterval(s.window, sink)
	default:
		return middleware.NewImmediate(sink)
	}
}

// Module provides the collect Lua module.
type Module struct{}

// NewModule creates a new collect module.
func NewModule() *Module {
	return &Module{}
}

// Loader is the module loader for Lua.
func (m *Module) Loader(L *lua.LState) int {
	L.NewTypeMetatable(specTypeName)

	mod := L.NewTable()
	L.SetField(mod, "quiet", L.NewFunction(specFn("quiet")))
	L.SetField(mod, "count", L.NewFunction(specFn("count")))
	L.SetField(mod, "interval", L.NewFunction(specFn("interval")))

	L.Push(mod)
	return 1
}

// specFn builds the Lua constructor for one strategy. All three take
// (n, reducer): milliseconds for quiet/interval, an event count for
// count.
func specFn(strategy string) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.CheckInt(1)
		reducer := L.CheckFunction(2)

		spec := &Spec{strategy: strategy, Reducer: reducer}
		if strategy == "count" {
			spec.count = n
		} else {
			spec.window = time.Duration(n) * time.Millisecond
		}

		ud := L.NewUserData()
		ud.Value = spec
		L.SetMetatable(ud, L.GetTypeMetatable(specTypeName))
		L.Push(ud)
		return 1
	}
}

// SpecOf extracts a Spec from Lua userdata, nil when the value is
// something else.
func SpecOf(v lua.LValue) *Spec {
	if ud, ok := v.(*lua.LUserData); ok {
		if spec, ok := ud.Value.(*Spec); ok {
			return spec
		}
	}
	return nil
}
