package casambi

import (
	"bytes"
	"strconv"
)

// ID is a unit or scene identifier. The cloud API emits ids as JSON
// numbers (occasionally with a fractional part) or as strings depending
// on the endpoint; control messages require a plain integer, so ids are
// normalized to int at decode time.
type ID int

// UnmarshalJSON accepts 8, 8.0 and "8".
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*id = ID(int(f))
	return nil
}

// Int returns the identifier as a plain int.
func (id ID) Int() int { return int(id) }

// Control is a single control entry of a unit: Dimmer, CCT, RGB, White,
// Overheat and friends. Which fields are populated depends on the type.
type Control struct {
	Type   string  `json:"type"`
	Value  float64 `json:"value,omitempty"`
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Level  float64 `json:"level,omitempty"`
	Status string  `json:"status,omitempty"`
	Source string  `json:"source,omitempty"`
}

// Control type names used by the Casambi wire protocol.
const (
	ControlDimmer           = "Dimmer"
	ControlCCT              = "CCT"
	ControlColorTemperature = "ColorTemperature"
	ControlRGB              = "RGB"
	ControlWhite            = "White"
	ControlColorsource      = "Colorsource"
)

// UnitInfo is the static unit record from GET /networks/{id}.
type UnitInfo struct {
	ID        ID      `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	FixtureID float64 `json:"fixtureId"`
	GroupID   int     `json:"groupId"`
	Position  int     `json:"position"`
	Type      string  `json:"type"`
	Image     string  `json:"image"`
}

// SceneUnit is a unit membership entry inside a scene definition.
type SceneUnit struct {
	ID ID `json:"id"`
}

// SceneInfo is the scene record from GET /networks/{id}.
type SceneInfo struct {
	ID       ID                   `json:"id"`
	Name     string               `json:"name"`
	Position int                  `json:"position"`
	Icon     int                  `json:"icon"`
	Color    string               `json:"color"`
	Type     string               `json:"type"`
	Hidden   bool                 `json:"hidden"`
	Units    map[string]SceneUnit `json:"units"`
}

// NetworkInformation is the response of GET /networks/{id}.
type NetworkInformation struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Grade    string               `json:"grade"`
	Timezone string               `json:"timezone"`
	Units    map[string]UnitInfo  `json:"units"`
	Scenes   map[string]SceneInfo `json:"scenes"`
}

// UnitState is the per-unit entry of GET /networks/{id}/state.
// Controls come as a list of control groups (list of lists).
type UnitState struct {
	ID            ID          `json:"id"`
	Name          string      `json:"name"`
	Address       string      `json:"address"`
	DimLevel      float64     `json:"dimLevel"`
	On            bool        `json:"on"`
	Online        bool        `json:"online"`
	Status        string      `json:"status"`
	Condition     float64     `json:"condition"`
	FixtureID     float64     `json:"fixtureId"`
	ActiveSceneID ID          `json:"activeSceneId"`
	Controls      [][]Control `json:"controls"`
}

// NetworkState is the response of GET /networks/{id}/state.
type NetworkState struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Revision int                  `json:"revision"`
	DimLevel float64              `json:"dimLevel"`
	Units    map[string]UnitState `json:"units"`
}

// UnitDetails is the metadata block attached to unitChanged events.
type UnitDetails struct {
	Name         string  `json:"name"`
	RawName      string  `json:"_name"`
	Address      string  `json:"address"`
	Fixture      float64 `json:"fixture"`
	FixtureModel string  `json:"fixture_model"`
	OEM          string  `json:"OEM"`
}

// Message is an incoming WebSocket frame. Methods of interest are
// "unitChanged" and "peerChanged"; anything else is logged and dropped.
type Message struct {
	Method   string       `json:"method"`
	ID       ID           `json:"id"`
	Wire     int          `json:"wire"`
	On       *bool        `json:"on,omitempty"`
	Online   *bool        `json:"online,omitempty"`
	Status   string       `json:"status,omitempty"`
	Controls []Control    `json:"controls,omitempty"`
	Sensors  []Control    `json:"sensors,omitempty"`
	Details  *UnitDetails `json:"details,omitempty"`

	// Some events carry details at the top level instead.
	Name         string  `json:"name,omitempty"`
	Address      string  `json:"address,omitempty"`
	Fixture      float64 `json:"fixture,omitempty"`
	FixtureModel string  `json:"fixture_model,omitempty"`
	OEM          string  `json:"OEM,omitempty"`
}

// Wire methods.
const (
	MethodUnitChanged  = "unitChanged"
	MethodPeerChanged  = "peerChanged"
	MethodControlUnit  = "controlUnit"
	MethodControlScene = "controlScene"
	MethodOpen         = "open"
)

// openMessage is the first frame sent after the WebSocket connects.
type openMessage struct {
	Method  string `json:"method"`
	ID      string `json:"id"`
	Session string `json:"session"`
	Ref     string `json:"ref"`
	Wire    int    `json:"wire"`
	// Client type, 1 = FRONTEND.
	Type int `json:"type"`
}

// controlMessage targets a single unit.
type controlMessage struct {
	Wire           int            `json:"wire"`
	Method         string         `json:"method"`
	ID             int            `json:"id"`
	TargetControls TargetControls `json:"targetControls"`
}

// sceneMessage activates or deactivates a scene.
type sceneMessage struct {
	Wire   int     `json:"wire"`
	Method string  `json:"method"`
	ID     int     `json:"id"`
	Level  float64 `json:"level"`
}
