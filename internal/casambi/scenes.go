package casambi

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Scene is a named preset defined in the network.
type Scene struct {
	ID        int
	NetworkID string
	Name      string
	Position  int
	Color     string
	Type      string
	Hidden    bool
	UnitIDs   []int
}

// UniqueID returns the network-scoped identifier "<networkID>-<id>".
func (s *Scene) UniqueID() string {
	return fmt.Sprintf("%s-%d", s.NetworkID, s.ID)
}

// Scenes mirrors the scene definitions of one network.
type Scenes struct {
	mu        sync.RWMutex
	networkID string
	scenes    map[string]*Scene
}

// NewScenes creates an empty scene registry for a network.
func NewScenes(networkID string) *Scenes {
	return &Scenes{
		networkID: networkID,
		scenes:    make(map[string]*Scene),
	}
}

// LoadNetworkInformation seeds the registry from GET /networks/{id}.
func (r *Scenes) LoadNetworkInformation(info map[string]SceneInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, si := range info {
		s := &Scene{
			ID:        si.ID.Int(),
			NetworkID: r.networkID,
			Name:      strings.TrimSpace(si.Name),
			Position:  si.Position,
			Color:     si.Color,
			Type:      si.Type,
			Hidden:    si.Hidden,
		}
		for _, su := range si.Units {
			s.UnitIDs = append(s.UnitIDs, su.ID.Int())
		}
		sort.Ints(s.UnitIDs)
		r.scenes[s.UniqueID()] = s
	}
}

// Get returns the scene with the given id.
func (r *Scenes) Get(id int) (Scene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scenes[(&Scene{NetworkID: r.networkID, ID: id}).UniqueID()]
	if !ok {
		return Scene{}, false
	}
	return *s, true
}

// List returns all scenes ordered by position.
func (r *Scenes) List() []Scene {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Scene, 0, len(r.scenes))
	for _, s := range r.scenes {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
