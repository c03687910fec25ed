// Package push provides Lua bindings for Casambi push events delivered
// over the WebSocket wire: unit changes, gateway transitions and wire
// connection state.
package push

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/jhellqvist/casambid/internal/lua/modules/collect"
)

// UnitChangedHandler is called when a unit state change arrives
type UnitChangedHandler struct {
	UnitID  Matcher // Matches the unit id ("*" for any, "8|9" for multiple)
	State   Matcher // Matches the derived state ("on", "off", "*" for any)
	Fn      *lua.LFunction
	Collect *collect.Spec // nil = every event delivered immediately
}

// PeerChangedHandler is called when the network gateway goes on- or offline
type PeerChangedHandler struct {
	Online Matcher // Matches "true", "false" or "*"
	Fn     *lua.LFunction
}

// ConnectionHandler is called when the wire connects or drops
type ConnectionHandler struct {
	State Matcher // Matches "connected", "disconnected" or "*"
	Fn    *lua.LFunction
}
