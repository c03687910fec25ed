package casambi

import (
	"encoding/json"
	"testing"
)

func seedUnits(t *testing.T) *Units {
	t.Helper()

	r := NewUnits("net1")
	r.LoadNetworkInformation(map[string]UnitInfo{
		"1": {ID: 1, Name: "Spot 1 ", Address: "aabbcc", FixtureID: 4027},
		"2": {ID: 2, Name: "Strip", FixtureID: 14235},
	})
	return r
}

func TestUnitsLoadNetworkInformation(t *testing.T) {
	r := seedUnits(t)

	u, ok := r.Get(1)
	if !ok {
		t.Fatal("unit 1 missing")
	}
	if u.Name != "Spot 1" {
		t.Errorf("name = %q, want trimmed Spot 1", u.Name)
	}
	if u.FixtureID != 4027 {
		t.Errorf("fixture id = %d, want 4027", u.FixtureID)
	}
	// Fixture table backfills model and OEM
	if u.FixtureModel != "CBU-PWM4 RGBW" || u.OEM != "Casambi" {
		t.Errorf("fixture backfill = %q/%q", u.FixtureModel, u.OEM)
	}
	if len(r.List()) != 2 {
		t.Errorf("list = %d units, want 2", len(r.List()))
	}
}

func TestUnitsApplyNetworkState(t *testing.T) {
	r := seedUnits(t)

	changed := r.ApplyNetworkState(&NetworkState{
		Units: map[string]UnitState{
			"1": {ID: 1, Name: "Spot 1", Online: true, DimLevel: 0.75,
				Controls: [][]Control{{{Type: ControlDimmer, Value: 0.75}}}},
			"2": {ID: 2, Name: "Strip", Online: false},
		},
	})

	if len(changed) != 1 {
		t.Fatalf("changed = %d units, want 1", len(changed))
	}
	if changed[0].ID != 1 || changed[0].Value != 0.75 {
		t.Errorf("changed unit = %+v", changed[0])
	}

	u, _ := r.Get(1)
	if u.State != UnitStateOn || !u.Online {
		t.Errorf("unit 1 state=%q online=%v", u.State, u.Online)
	}
	if !u.SupportsBrightness() {
		t.Error("controls not merged from state")
	}
}

func TestUnitsApplyUnitChanged(t *testing.T) {
	r := seedUnits(t)

	payload := `{
		"method": "unitChanged", "id": 1, "online": true,
		"controls": [{"type": "Dimmer", "value": 1}],
		"details": {"name": "Spot 1", "fixture": 4027, "OEM": "Casambi"}
	}`
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		t.Fatal(err)
	}

	u := r.ApplyUnitChanged(&msg)
	if u == nil {
		t.Fatal("expected a changed unit")
	}
	if u.Value != 1 || u.State != UnitStateOn {
		t.Errorf("unit = %+v, want on at full", u)
	}
}

func TestUnitsApplyUnitChanged_NoDimmer(t *testing.T) {
	r := seedUnits(t)

	msg := &Message{Method: MethodUnitChanged, ID: 1, Controls: []Control{{Type: "Overheat"}}}
	if u := r.ApplyUnitChanged(msg); u != nil {
		t.Errorf("event without Dimmer control should be ignored, got %+v", u)
	}
}

func TestUnitsApplyUnitChanged_DiscoversUnknown(t *testing.T) {
	r := seedUnits(t)

	msg := &Message{
		Method:   MethodUnitChanged,
		ID:       99,
		Name:     "New unit",
		Controls: []Control{{Type: ControlDimmer, Value: 0.5}},
	}
	u := r.ApplyUnitChanged(msg)
	if u == nil {
		t.Fatal("expected discovery of unknown unit")
	}
	if u.ID != 99 || u.Name != "New unit" {
		t.Errorf("discovered unit = %+v", u)
	}
	if len(r.List()) != 3 {
		t.Errorf("list = %d units, want 3", len(r.List()))
	}
}

func TestUnitsApplyPeerChanged(t *testing.T) {
	r := seedUnits(t)

	off := false
	units := r.ApplyPeerChanged(&Message{Method: MethodPeerChanged, Online: &off})
	if r.Online() {
		t.Error("registry should be offline")
	}
	for _, u := range units {
		if u.Online {
			t.Errorf("unit %d still online after gateway drop", u.ID)
		}
	}

	on := true
	r.ApplyPeerChanged(&Message{Method: MethodPeerChanged, Online: &on})
	if !r.Online() {
		t.Error("registry should be back online")
	}
}

func TestUnitsRestore(t *testing.T) {
	r := NewUnits("net1")
	r.Restore(Unit{ID: 5, Name: "Persisted", Value: 0.4, State: UnitStateOn})

	u, ok := r.Get(5)
	if !ok || u.Name != "Persisted" || u.Value != 0.4 {
		t.Fatalf("restored unit = %+v (ok=%v)", u, ok)
	}

	// Live state wins over a later restore
	r.LoadNetworkInformation(map[string]UnitInfo{"5": {ID: 5, Name: "Live"}})
	r.Restore(Unit{ID: 5, Name: "Stale"})
	u, _ = r.Get(5)
	if u.Name != "Live" {
		t.Errorf("name = %q, want Live", u.Name)
	}
}
