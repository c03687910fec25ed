package modules

import (
	"strconv"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/jhellqvist/casambid/internal/casambi"
)

const (
	unitTypeName  = "casambi_unit"
	sceneTypeName = "casambi_scene"
)

// CasambiModule provides casambi.* functions to Lua.
//
// ERROR HANDLING CONVENTION:
// All functions that can fail return two values: (result, error_string).
//   - On success: (result, nil)
//   - On error: (nil/false, "error message")
//
// Units and scenes are userdata with chainable control methods:
//
//	local spot = casambi.unit(8)
//	spot:on()
//	spot:set_value(0.4)
//	spot:set_cct(2700)
//
//	local evening = casambi.scene(10)
//	evening:on()
type CasambiModule struct {
	controller *casambi.Controller
}

// NewCasambiModule creates a new casambi module
func NewCasambiModule(controller *casambi.Controller) *CasambiModule {
	return &CasambiModule{controller: controller}
}

// Loader is the module loader for Lua
func (m *CasambiModule) Loader(L *lua.LState) int {
	registerUnitType(L)
	registerSceneType(L)

	mod := L.NewTable()

	L.SetField(mod, "unit", L.NewFunction(m.unit))
	L.SetField(mod, "units", L.NewFunction(m.units))
	L.SetField(mod, "scene", L.NewFunction(m.scene))
	L.SetField(mod, "scenes", L.NewFunction(m.scenes))
	L.SetField(mod, "online", L.NewFunction(m.online))
	L.SetField(mod, "network_id", L.NewFunction(m.networkID))

	L.Push(mod)
	return 1
}

// checkID accepts a unit or scene id as number or string
func checkID(L *lua.LState, pos int) (int, bool) {
	switch v := L.Get(pos).(type) {
	case lua.LString:
		id, err := strconv.Atoi(string(v))
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString("invalid id: " + string(v)))
			return 0, false
		}
		return id, true
	case lua.LNumber:
		return int(v), true
	default:
		L.ArgError(pos, "id must be string or number")
		return 0, false
	}
}

// unit(id) -> (unit_userdata, err)
func (m *CasambiModule) unit(L *lua.LState) int {
	id, ok := checkID(L, 1)
	if !ok {
		return 2
	}

	units := m.controller.Units()
	if units == nil {
		L.Push(lua.LNil)
		L.Push(lua.LString("not logged in"))
		return 2
	}
	u, found := units.Get(id)
	if !found {
		L.Push(lua.LNil)
		L.Push(lua.LString("unknown unit " + strconv.Itoa(id)))
		return 2
	}

	pushUnit(L, m.controller, u)
	L.Push(lua.LNil)
	return 2
}

// units() -> table of unit_userdata
func (m *CasambiModule) units(L *lua.LState) int {
	tbl := L.NewTable()
	if units := m.controller.Units(); units != nil {
		for i, u := range units.List() {
			ud := newUnitUserdata(L, m.controller, u)
			tbl.RawSetInt(i+1, ud)
		}
	}
	L.Push(tbl)
	return 1
}

// scene(id) -> (scene_userdata, err)
func (m *CasambiModule) scene(L *lua.LState) int {
	id, ok := checkID(L, 1)
	if !ok {
		return 2
	}

	scenes := m.controller.Scenes()
	if scenes == nil {
		L.Push(lua.LNil)
		L.Push(lua.LString("not logged in"))
		return 2
	}
	s, found := scenes.Get(id)
	if !found {
		L.Push(lua.LNil)
		L.Push(lua.LString("unknown scene " + strconv.Itoa(id)))
		return 2
	}

	pushScene(L, m.controller, s)
	L.Push(lua.LNil)
	return 2
}

// scenes() -> table of scene_userdata
func (m *CasambiModule) scenes(L *lua.LState) int {
	tbl := L.NewTable()
	if scenes := m.controller.Scenes(); scenes != nil {
		for i, s := range scenes.List() {
			ud := newSceneUserdata(L, m.controller, s)
			tbl.RawSetInt(i+1, ud)
		}
	}
	L.Push(tbl)
	return 1
}

// online() -> bool
func (m *CasambiModule) online(L *lua.LState) int {
	units := m.controller.Units()
	L.Push(lua.LBool(units != nil && units.Online()))
	return 1
}

// network_id() -> string
func (m *CasambiModule) networkID(L *lua.LState) int {
	L.Push(lua.LString(m.controller.NetworkID()))
	return 1
}

// =============================================================================
// Unit userdata
// =============================================================================

type luaUnit struct {
	controller *casambi.Controller
	unit       casambi.Unit
}

func registerUnitType(L *lua.LState) {
	mt := L.NewTypeMetatable(unitTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), unitMethods))
}

var unitMethods = map[string]lua.LGFunction{
	"on":            unitOn,
	"off":           unitOff,
	"set_value":     unitSetValue,
	"set_cct":       unitSetCCT,
	"set_cct_mired": unitSetCCTMired,
	"set_rgb":       unitSetRGB,
	"set_rgbw":      unitSetRGBW,
	"state":         unitState,
}

func newUnitUserdata(L *lua.LState, c *casambi.Controller, u casambi.Unit) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = &luaUnit{controller: c, unit: u}
	L.SetMetatable(ud, L.GetTypeMetatable(unitTypeName))
	return ud
}

func pushUnit(L *lua.LState, c *casambi.Controller, u casambi.Unit) {
	L.Push(newUnitUserdata(L, c, u))
}

func checkUnit(L *lua.LState, pos int) *luaUnit {
	ud := L.CheckUserData(pos)
	if u, ok := ud.Value.(*luaUnit); ok {
		return u
	}
	L.ArgError(pos, "unit expected")
	return nil
}

// unitResult pushes the chainable (self, err) pair for control methods
func unitResult(L *lua.LState, err error) int {
	if err != nil {
		log.Error().Err(err).Msg("Unit control failed")
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(L.Get(1))
	L.Push(lua.LNil)
	return 2
}

// unit:on() -> (self, err)
func unitOn(L *lua.LState) int {
	u := checkUnit(L, 1)
	return unitResult(L, u.controller.TurnUnitOn(u.unit.ID))
}

// unit:off() -> (self, err)
func unitOff(L *lua.LState) int {
	u := checkUnit(L, 1)
	return unitResult(L, u.controller.TurnUnitOff(u.unit.ID))
}

// unit:set_value(value) -> (self, err), value within [0, 1]
func unitSetValue(L *lua.LState) int {
	u := checkUnit(L, 1)
	value := float64(L.CheckNumber(2))
	return unitResult(L, u.controller.SetUnitValue(u.unit.ID, value))
}

// unit:set_cct(kelvin) -> (self, err)
func unitSetCCT(L *lua.LState) int {
	u := checkUnit(L, 1)
	kelvin := L.CheckInt(2)
	return unitResult(L, u.controller.SetUnitColorTemperature(u.unit.ID, kelvin))
}

// unit:set_cct_mired(mired) -> (self, err)
func unitSetCCTMired(L *lua.LState) int {
	u := checkUnit(L, 1)
	mired := L.CheckInt(2)
	return unitResult(L, u.controller.SetUnitColorTemperatureMired(u.unit.ID, mired))
}

// unit:set_rgb(r, g, b) -> (self, err)
func unitSetRGB(L *lua.LState) int {
	u := checkUnit(L, 1)
	r, g, b := L.CheckInt(2), L.CheckInt(3), L.CheckInt(4)
	return unitResult(L, u.controller.SetUnitRGB(u.unit.ID, uint8(r), uint8(g), uint8(b), true))
}

// unit:set_rgbw(r, g, b, w) -> (self, err)
func unitSetRGBW(L *lua.LState) int {
	u := checkUnit(L, 1)
	r, g, b, w := L.CheckInt(2), L.CheckInt(3), L.CheckInt(4), L.CheckInt(5)
	return unitResult(L, u.controller.SetUnitRGBW(u.unit.ID, uint8(r), uint8(g), uint8(b), uint8(w), true))
}

// unit:state() -> table with the last known mirror state
func unitState(L *lua.LState) int {
	lu := checkUnit(L, 1)

	// Refresh from the mirror so chained reads see live state
	if units := lu.controller.Units(); units != nil {
		if fresh, ok := units.Get(lu.unit.ID); ok {
			lu.unit = fresh
		}
	}

	u := lu.unit
	tbl := L.NewTable()
	L.SetField(tbl, "id", lua.LNumber(u.ID))
	L.SetField(tbl, "unique_id", lua.LString(u.UniqueID()))
	L.SetField(tbl, "name", lua.LString(u.Name))
	L.SetField(tbl, "value", lua.LNumber(u.Value))
	L.SetField(tbl, "state", lua.LString(u.State))
	L.SetField(tbl, "online", lua.LBool(u.Online))
	L.SetField(tbl, "fixture_model", lua.LString(u.FixtureModel))
	L.SetField(tbl, "oem", lua.LString(u.OEM))

	if min, max, current := u.ColorTemperatureRange(); max > 0 {
		cct := L.NewTable()
		L.SetField(cct, "min", lua.LNumber(min))
		L.SetField(cct, "max", lua.LNumber(max))
		L.SetField(cct, "current", lua.LNumber(current))
		L.SetField(tbl, "cct", cct)
	}

	L.Push(tbl)
	return 1
}

// =============================================================================
// Scene userdata
// =============================================================================

type luaScene struct {
	controller *casambi.Controller
	scene      casambi.Scene
}

func registerSceneType(L *lua.LState) {
	mt := L.NewTypeMetatable(sceneTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), sceneMethods))
}

var sceneMethods = map[string]lua.LGFunction{
	"on":        sceneOn,
	"off":       sceneOff,
	"set_level": sceneSetLevel,
	"info":      sceneInfo,
}

func newSceneUserdata(L *lua.LState, c *casambi.Controller, s casambi.Scene) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = &luaScene{controller: c, scene: s}
	L.SetMetatable(ud, L.GetTypeMetatable(sceneTypeName))
	return ud
}

func pushScene(L *lua.LState, c *casambi.Controller, s casambi.Scene) {
	L.Push(newSceneUserdata(L, c, s))
}

func checkScene(L *lua.LState, pos int) *luaScene {
	ud := L.CheckUserData(pos)
	if s, ok := ud.Value.(*luaScene); ok {
		return s
	}
	L.ArgError(pos, "scene expected")
	return nil
}

// scene:on() -> (self, err)
func sceneOn(L *lua.LState) int {
	s := checkScene(L, 1)
	return unitResult(L, s.controller.TurnSceneOn(s.scene.ID))
}

// scene:off() -> (self, err)
func sceneOff(L *lua.LState) int {
	s := checkScene(L, 1)
	return unitResult(L, s.controller.TurnSceneOff(s.scene.ID))
}

// scene:set_level(level) -> (self, err), level within [0, 1]
func sceneSetLevel(L *lua.LState) int {
	s := checkScene(L, 1)
	level := float64(L.CheckNumber(2))
	return unitResult(L, s.controller.SetSceneLevel(s.scene.ID, level))
}

// scene:info() -> table
func sceneInfo(L *lua.LState) int {
	s := checkScene(L, 1).scene

	tbl := L.NewTable()
	L.SetField(tbl, "id", lua.LNumber(s.ID))
	L.SetField(tbl, "name", lua.LString(s.Name))
	L.SetField(tbl, "position", lua.LNumber(s.Position))
	L.SetField(tbl, "hidden", lua.LBool(s.Hidden))

	units := L.NewTable()
	for i, id := range s.UnitIDs {
		units.RawSetInt(i+1, lua.LNumber(id))
	}
	L.SetField(tbl, "units", units)

	L.Push(tbl)
	return 1
}
