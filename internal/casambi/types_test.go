package casambi

import (
	"encoding/json"
	"testing"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{`8`, 8},
		{`8.0`, 8},
		{`"8"`, 8},
		{`"12.0"`, 12},
	}
	for _, tt := range tests {
		var id ID
		if err := json.Unmarshal([]byte(tt.in), &id); err != nil {
			t.Errorf("unmarshal %s: %v", tt.in, err)
			continue
		}
		if id.Int() != tt.want {
			t.Errorf("unmarshal %s = %d, want %d", tt.in, id.Int(), tt.want)
		}
	}

	var id ID
	if err := json.Unmarshal([]byte(`"abc"`), &id); err == nil {
		t.Error("unmarshal of non-numeric id should fail")
	}
}

func TestMessageDecode_UnitChanged(t *testing.T) {
	payload := `{
		"method": "unitChanged",
		"id": 8,
		"wire": 3,
		"on": true,
		"online": true,
		"status": "ok",
		"controls": [
			{"type": "Dimmer", "value": 0.5},
			{"type": "CCT", "value": 3000, "min": 2700, "max": 4000, "level": 0.5}
		],
		"details": {
			"name": "Spot 1",
			"_name": "spot1",
			"address": "aabbccddeeff",
			"fixture": 4027,
			"fixture_model": "CBU-PWM4 RGBW",
			"OEM": "Casambi"
		}
	}`

	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if msg.Method != MethodUnitChanged {
		t.Errorf("method = %q, want unitChanged", msg.Method)
	}
	if msg.ID.Int() != 8 {
		t.Errorf("id = %d, want 8", msg.ID.Int())
	}
	if msg.Online == nil || !*msg.Online {
		t.Error("online should be true")
	}
	if len(msg.Controls) != 2 {
		t.Fatalf("controls = %d, want 2", len(msg.Controls))
	}
	dimmer, ok := findControl(msg.Controls, ControlDimmer)
	if !ok || dimmer.Value != 0.5 {
		t.Errorf("dimmer = %+v (found=%v), want value 0.5", dimmer, ok)
	}
	if msg.Details == nil || msg.Details.OEM != "Casambi" {
		t.Errorf("details = %+v, want OEM Casambi", msg.Details)
	}
}

func TestMessageDecode_PeerChanged(t *testing.T) {
	payload := `{"method": "peerChanged", "online": false, "wire": 3}`

	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Method != MethodPeerChanged {
		t.Errorf("method = %q, want peerChanged", msg.Method)
	}
	if msg.Online == nil || *msg.Online {
		t.Error("online should be false")
	}
}

func TestNetworkStateDecode(t *testing.T) {
	payload := `{
		"id": "net1",
		"name": "Home",
		"revision": 42,
		"units": {
			"1": {
				"id": 1,
				"name": "Spot 1",
				"online": true,
				"on": true,
				"dimLevel": 0.75,
				"fixtureId": 4027,
				"controls": [[{"type": "Dimmer", "value": 0.75}]]
			}
		}
	}`

	var state NetworkState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}

	us, ok := state.Units["1"]
	if !ok {
		t.Fatal("unit 1 missing")
	}
	if us.DimLevel != 0.75 {
		t.Errorf("dimLevel = %v, want 0.75", us.DimLevel)
	}
	if len(us.Controls) != 1 || len(us.Controls[0]) != 1 {
		t.Fatalf("controls shape wrong: %+v", us.Controls)
	}
	if us.Controls[0][0].Type != ControlDimmer {
		t.Errorf("control type = %q, want Dimmer", us.Controls[0][0].Type)
	}
}
