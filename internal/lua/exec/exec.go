// Package exec provides the Executor interface for thread-safe Lua
// execution, plus the value conversions between Go event data and Lua
// tables. It sits below the module packages to avoid import cycles
// with the event handlers.
package exec

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	glua "github.com/yuin/gopher-lua"
)

// Executor provides thread-safe Lua execution and state access.
// This interface is implemented by Runtime and used by all event handlers.
type Executor interface {
	// Do queues work to be executed on the Lua VM
	Do(ctx context.Context, work func(ctx context.Context)) bool
	// LState returns the underlying Lua state (for use within Do callbacks only)
	LState() *glua.LState
}

// CallReducer calls a Lua reducer function with events array.
// MUST be called from within an Executor.Do() callback to ensure thread safety.
func CallReducer(L *glua.LState, reducer *glua.LFunction, events []map[string]any) map[string]any {
	eventsTable := L.NewTable()
	for i, e := range events {
		eventsTable.RawSetInt(i+1, MapToTable(L, e))
	}

	L.Push(reducer)
	L.Push(eventsTable)

	if err := L.PCall(1, 1, nil); err != nil {
		log.Error().Err(err).Msg("Lua reducer failed")
		return make(map[string]any)
	}

	result := L.Get(-1)
	L.Pop(1)

	if tbl, ok := result.(*glua.LTable); ok {
		return TableToMap(tbl)
	}
	return make(map[string]any)
}

// CallHandler calls a Lua handler function with a single event table.
// MUST be called from within an Executor.Do() callback to ensure thread safety.
func CallHandler(L *glua.LState, fn *glua.LFunction, event map[string]any) {
	L.Push(fn)
	L.Push(MapToTable(L, event))

	if err := L.PCall(1, 0, nil); err != nil {
		log.Error().Err(err).Msg("Lua handler failed")
	}
}

// MapToTable converts a Go map to a Lua table.
func MapToTable(L *glua.LState, m map[string]any) *glua.LTable {
	tbl := L.NewTable()
	for k, v := range m {
		L.SetField(tbl, k, ToLua(L, v))
	}
	return tbl
}

// TableToMap converts a Lua table to a Go map. Non-string keys are
// dropped.
func TableToMap(tbl *glua.LTable) map[string]any {
	m := make(map[string]any)
	tbl.ForEach(func(k, v glua.LValue) {
		if ks, ok := k.(glua.LString); ok {
			m[string(ks)] = FromLua(v)
		}
	})
	return m
}

// ToLua converts a Go value to a Lua value. Slices become array tables,
// maps become tables; anything unrecognized is stringified.
func ToLua(L *glua.LState, v any) glua.LValue {
	switch val := v.(type) {
	case nil:
		return glua.LNil
	case bool:
		return glua.LBool(val)
	case int:
		return glua.LNumber(val)
	case int64:
		return glua.LNumber(val)
	case float64:
		return glua.LNumber(val)
	case string:
		return glua.LString(val)
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, ToLua(L, item))
		}
		return tbl
	case []map[string]any:
		// Peer events carry the changed units this way
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, MapToTable(L, item))
		}
		return tbl
	case map[string]any:
		return MapToTable(L, val)
	default:
		return glua.LString(fmt.Sprintf("%v", v))
	}
}

// FromLua converts a Lua value to a Go value. Tables with contiguous
// numeric keys become slices, everything else becomes a map.
func FromLua(v glua.LValue) any {
	switch val := v.(type) {
	case glua.LString:
		return string(val)
	case glua.LNumber:
		return float64(val)
	case glua.LBool:
		return bool(val)
	case *glua.LTable:
		isArray := true
		maxIdx := 0
		val.ForEach(func(k, _ glua.LValue) {
			if num, ok := k.(glua.LNumber); ok {
				if idx := int(num); idx > maxIdx {
					maxIdx = idx
				}
			} else {
				isArray = false
			}
		})

		if isArray && maxIdx > 0 {
			arr := make([]any, maxIdx)
			val.ForEach(func(k, v glua.LValue) {
				if num, ok := k.(glua.LNumber); ok {
					arr[int(num)-1] = FromLua(v)
				}
			})
			return arr
		}

		obj := make(map[string]any)
		val.ForEach(func(k, v glua.LValue) {
			obj[glua.LVAsString(k)] = FromLua(v)
		})
		return obj
	case *glua.LNilType:
		return nil
	default:
		return v.String()
	}
}
