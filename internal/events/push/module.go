package push

import (
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/jhellqvist/casambid/internal/lua/modules/collect"
)

// Module provides the events.casambi Lua module for push event handlers
type Module struct {
	unitHandlers       []UnitChangedHandler
	peerHandlers       []PeerChangedHandler
	connectionHandlers []ConnectionHandler
}

// NewModule creates a new push event module
func NewModule() *Module {
	return &Module{}
}

// Loader is the module loader for Lua
func (m *Module) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "on_unit", L.NewFunction(m.onUnit))
	L.SetField(mod, "on_peer", L.NewFunction(m.onPeer))
	L.SetField(mod, "on_connection", L.NewFunction(m.onConnection))

	L.Push(mod)
	return 1
}

// on_unit(unit_id_pattern, fn, opts) - Register a unit change handler
// Patterns accept "*" and "a|b" alternatives; unit ids match by number.
// Optional opts: { state = "on|off", middleware = collect.quiet(...) }
func (m *Module) onUnit(L *lua.LState) int {
	pattern := L.CheckString(1)
	fn := L.CheckFunction(2)
	opts := L.OptTable(3, L.NewTable())

	state := "*"
	if s := opts.RawGetString("state"); s != lua.LNil {
		state = lua.LVAsString(s)
	}

	var spec *collect.Spec
	if mw := opts.RawGetString("middleware"); mw != lua.LNil {
		spec = collect.SpecOf(mw)
	}

	m.unitHandlers = append(m.unitHandlers, UnitChangedHandler{
		UnitID:  ParseMatcher(pattern),
		State:   ParseMatcher(state),
		Fn:      fn,
		Collect: spec,
	})

	return 0
}

// on_peer(fn, opts) - Register a gateway online/offline handler
// Optional opts: { online = "true" | "false" }
func (m *Module) onPeer(L *lua.LState) int {
	fn := L.CheckFunction(1)
	opts := L.OptTable(2, L.NewTable())

	online := "*"
	if o := opts.RawGetString("online"); o != lua.LNil {
		online = lua.LVAsString(o)
	}

	m.peerHandlers = append(m.peerHandlers, PeerChangedHandler{
		Online: ParseMatcher(online),
		Fn:     fn,
	})

	return 0
}

// on_connection(state_pattern, fn) - Register a wire state handler
func (m *Module) onConnection(L *lua.LState) int {
	pattern := L.CheckString(1)
	fn := L.CheckFunction(2)

	m.connectionHandlers = append(m.connectionHandlers, ConnectionHandler{
		State: ParseMatcher(pattern),
		Fn:    fn,
	})

	return 0
}

// FindUnitHandlers returns all handlers matching a unit event
func (m *Module) FindUnitHandlers(unitID int, state string) []*UnitChangedHandler {
	id := strconv.Itoa(unitID)

	var matched []*UnitChangedHandler
	for i := range m.unitHandlers {
		h := &m.unitHandlers[i]
		if h.UnitID.Matches(id) && h.State.Matches(state) {
			matched = append(matched, h)
		}
	}
	return matched
}

// FindPeerHandlers returns all handlers matching a gateway transition
func (m *Module) FindPeerHandlers(online bool) []*PeerChangedHandler {
	v := strconv.FormatBool(online)

	var matched []*PeerChangedHandler
	for i := range m.peerHandlers {
		h := &m.peerHandlers[i]
		if h.Online.Matches(v) {
			matched = append(matched, h)
		}
	}
	return matched
}

// FindConnectionHandlers returns all handlers matching a wire state
func (m *Module) FindConnectionHandlers(state string) []*ConnectionHandler {
	var matched []*ConnectionHandler
	for i := range m.connectionHandlers {
		h := &m.connectionHandlers[i]
		if h.State.Matches(state) {
			matched = append(matched, h)
		}
	}
	return matched
}
