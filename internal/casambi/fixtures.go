package casambi

// Fixture describes a known fixture model. The cloud occasionally omits
// OEM/model metadata from events; this table backfills it.
type Fixture struct {
	OEM   string
	Model string
	Type  string
}

var knownFixtures = map[int]Fixture{
	2516:  {OEM: "Vadsbo", Model: "LD220WCM_onoff", Type: "Luminaire"},
	4027:  {OEM: "Casambi", Model: "CBU-PWM4 RGBW", Type: "Luminaire"},
	8223:  {OEM: "Tridonic GmbH & Co KG", Model: "bDW Driver (Dim/PushBUTTON)", Type: "Luminaire"},
	14235: {OEM: "AIMOTION", Model: "GLOW", Type: "Luminaire"},
}

// LookupFixture returns metadata for a known fixture id.
func LookupFixture(id int) (Fixture, bool) {
	f, ok := knownFixtures[id]
	return f, ok
}
