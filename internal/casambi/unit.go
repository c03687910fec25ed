package casambi

import (
	"fmt"
)

// Unit states.
const (
	UnitStateOn  = "on"
	UnitStateOff = "off"
)

// Unit is the mirrored state of a single fixture in the network. Values
// handed out by the Units registry are copies; mutate through the
// registry only.
type Unit struct {
	ID           int
	NetworkID    string
	Name         string
	Address      string
	Value        float64
	State        string
	Online       bool
	Enabled      bool
	FixtureID    int
	FixtureModel string
	OEM          string
	Type         string

	// Controls is keyed by control type (Dimmer, CCT, RGB, ...).
	Controls map[string]Control
}

// UniqueID returns the network-scoped identifier "<networkID>-<id>".
func (u *Unit) UniqueID() string {
	return fmt.Sprintf("%s-%d", u.NetworkID, u.ID)
}

// setValue updates the dim value and derives the on/off state. Values
// outside [0, 1] are rejected.
func (u *Unit) setValue(value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("unit %d: invalid value %v, must be within [0, 1]", u.ID, value)
	}
	u.Value = value
	if value == 0 {
		u.State = UnitStateOff
	} else {
		u.State = UnitStateOn
	}
	return nil
}

// setControls merges a list of control entries into the controls map.
func (u *Unit) setControls(controls []Control) {
	if u.Controls == nil {
		u.Controls = make(map[string]Control, len(controls))
	}
	for _, c := range controls {
		if c.Type == "" {
			continue
		}
		u.Controls[c.Type] = c
	}
}

// SupportsBrightness reports whether the unit has a Dimmer control.
func (u *Unit) SupportsBrightness() bool {
	_, ok := u.Controls[ControlDimmer]
	return ok
}

// SupportsColorTemperature reports whether the unit has a CCT control.
func (u *Unit) SupportsColorTemperature() bool {
	_, ok := u.Controls[ControlCCT]
	return ok
}

// SupportsRGB reports whether the unit has an RGB control.
func (u *Unit) SupportsRGB() bool {
	_, ok := u.Controls[ControlRGB]
	return ok
}

// SupportsRGBW reports whether the unit has both RGB and White controls.
func (u *Unit) SupportsRGBW() bool {
	return u.SupportsRGB() && u.hasControl(ControlWhite)
}

func (u *Unit) hasControl(name string) bool {
	_, ok := u.Controls[name]
	return ok
}

// ColorTemperatureRange returns the supported CCT range and the current
// value in kelvin, or zeros when color temperature is unsupported.
func (u *Unit) ColorTemperatureRange() (min, max, current int) {
	cct, ok := u.Controls[ControlCCT]
	if !ok {
		return 0, 0, 0
	}
	return int(cct.Min), int(cct.Max), int(cct.Value)
}

// MinMired returns the mired value of the warmest supported temperature.
func (u *Unit) MinMired() int {
	cct, ok := u.Controls[ControlCCT]
	if !ok {
		return 0
	}
	return MiredFromKelvin(cct.Max)
}

// MaxMired returns the mired value of the coolest supported temperature.
func (u *Unit) MaxMired() int {
	cct, ok := u.Controls[ControlCCT]
	if !ok {
		return 0
	}
	return MiredFromKelvin(cct.Min)
}

// ColorTemperatureMired returns the current color temperature in mireds.
func (u *Unit) ColorTemperatureMired() int {
	cct, ok := u.Controls[ControlCCT]
	if !ok {
		return 0
	}
	return MiredFromKelvin(cct.Value)
}

// clone returns a deep copy, detaching the controls map.
func (u *Unit) clone() Unit {
	out := *u
	if u.Controls != nil {
		out.Controls = make(map[string]Control, len(u.Controls))
		for k, v := range u.Controls {
			out.Controls[k] = v
		}
	}
	return out
}
