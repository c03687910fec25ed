package casambi

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Units mirrors the unit population of one network. It is fed from the
// initial network information, periodic state polls and live unitChanged
// events; all accessors return copies.
type Units struct {
	mu        sync.RWMutex
	networkID string
	units     map[string]*Unit
	online    bool
}

// NewUnits creates an empty registry for a network.
func NewUnits(networkID string) *Units {
	return &Units{
		networkID: networkID,
		units:     make(map[string]*Unit),
		online:    true,
	}
}

// LoadNetworkInformation seeds the registry from GET /networks/{id}.
// Existing entries are updated in place so live control state survives a
// re-initialization.
func (r *Units) LoadNetworkInformation(info map[string]UnitInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ui := range info {
		u := r.locked(ui.ID.Int())
		u.Name = strings.TrimSpace(ui.Name)
		u.Address = ui.Address
		u.Type = ui.Type
		if ui.FixtureID != 0 {
			u.FixtureID = int(ui.FixtureID)
			if f, ok := LookupFixture(int(ui.FixtureID)); ok {
				u.FixtureModel = f.Model
				u.OEM = f.OEM
			}
		}
	}
}

// ApplyNetworkState refreshes names, online flags and dim values from
// GET /networks/{id}/state and returns the units that changed.
func (r *Units) ApplyNetworkState(state *NetworkState) []Unit {
	if state == nil || state.Units == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var changed []Unit
	for _, us := range state.Units {
		u := r.locked(us.ID.Int())
		before := *u

		u.Name = strings.TrimSpace(us.Name)
		if us.Address != "" {
			u.Address = us.Address
		}
		u.Online = us.Online
		if us.FixtureID != 0 {
			u.FixtureID = int(us.FixtureID)
		}
		for _, group := range us.Controls {
			u.setControls(group)
		}
		if us.Online {
			if err := u.setValue(us.DimLevel); err != nil {
				log.Warn().Err(err).Int("unit_id", u.ID).Msg("Ignoring out-of-range dim level in network state")
			}
		}

		if before.Value != u.Value || before.Online != u.Online || before.Name != u.Name {
			changed = append(changed, u.clone())
		}
	}
	return changed
}

// ApplyUnitChanged processes a unitChanged event and returns the changed
// unit, or nil when the event carried nothing applicable. Unknown units
// are discovered on the fly, as the cloud pushes events for units that
// joined after initialization.
func (r *Units) ApplyUnitChanged(msg *Message) *Unit {
	dimmer, ok := findControl(msg.Controls, ControlDimmer)
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.locked(msg.ID.Int())

	if name := eventName(msg); name != "" {
		u.Name = name
	}
	if addr := eventAddress(msg); addr != "" {
		u.Address = addr
	}
	if fixture := eventFixture(msg); fixture != 0 {
		u.FixtureID = int(fixture)
	}
	if model := eventFixtureModel(msg); model != "" {
		u.FixtureModel = model
	}
	if oem := eventOEM(msg); oem != "" {
		u.OEM = oem
	}
	if msg.Online != nil {
		if !u.Online && *msg.Online {
			log.Info().Int("unit_id", u.ID).Msg("Unit is back online")
		}
		u.Online = *msg.Online
	}
	u.setControls(msg.Controls)
	if err := u.setValue(dimmer.Value); err != nil {
		log.Warn().Err(err).Int("unit_id", u.ID).Msg("Ignoring out-of-range dimmer value in event")
	}

	changed := u.clone()
	return &changed
}

// ApplyPeerChanged flips the gateway online flag onto every unit and
// returns the new population snapshot.
func (r *Units) ApplyPeerChanged(msg *Message) []Unit {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.Online != nil {
		r.online = *msg.Online
		for _, u := range r.units {
			u.Online = *msg.Online
		}
	}

	out := make([]Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u.clone())
	}
	return out
}

// Online reports whether the network gateway is reachable.
func (r *Units) Online() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.online
}

// Get returns the unit with the given id.
func (r *Units) Get(id int) (Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.units[r.key(id)]
	if !ok {
		return Unit{}, false
	}
	return u.clone(), true
}

// List returns all known units.
func (r *Units) List() []Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u.clone())
	}
	return out
}

// Restore seeds a unit from a persisted snapshot, keeping any live state
// already present.
func (r *Units) Restore(u Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.key(u.ID)
	if _, ok := r.units[key]; ok {
		return
	}
	u.NetworkID = r.networkID
	restored := u.clone()
	r.units[key] = &restored
}

func (r *Units) key(id int) string {
	return (&Unit{NetworkID: r.networkID, ID: id}).UniqueID()
}

// locked returns the unit for id, creating it if absent. Callers hold mu.
func (r *Units) locked(id int) *Unit {
	key := r.key(id)
	u, ok := r.units[key]
	if !ok {
		u = &Unit{
			ID:        id,
			NetworkID: r.networkID,
			State:     UnitStateOff,
			Online:    r.online,
			Enabled:   true,
		}
		r.units[key] = u
	}
	return u
}

func findControl(controls []Control, typ string) (Control, bool) {
	for _, c := range controls {
		if c.Type == typ {
			return c, true
		}
	}
	return Control{}, false
}

func eventName(msg *Message) string {
	if msg.Details != nil && msg.Details.Name != "" {
		return strings.TrimSpace(msg.Details.Name)
	}
	return strings.TrimSpace(msg.Name)
}

func eventAddress(msg *Message) string {
	if msg.Details != nil && msg.Details.Address != "" {
		return msg.Details.Address
	}
	return msg.Address
}

func eventFixture(msg *Message) float64 {
	if msg.Details != nil && msg.Details.Fixture != 0 {
		return msg.Details.Fixture
	}
	return msg.Fixture
}

func eventFixtureModel(msg *Message) string {
	if msg.Details != nil && msg.Details.FixtureModel != "" {
		return msg.Details.FixtureModel
	}
	return msg.FixtureModel
}

func eventOEM(msg *Message) string {
	if msg.Details != nil && msg.Details.OEM != "" {
		return msg.Details.OEM
	}
	return msg.OEM
}
