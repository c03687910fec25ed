package storage

import (
	"encoding/json"
	"fmt"

	"github.com/jhellqvist/casambid/internal/casambi"
)

const kindUnit = "unit"

// UnitStore persists unit snapshots so the daemon can present the last
// known state before the cloud answers after a restart.
type UnitStore struct {
	store *Store
}

// NewUnitStore creates a unit snapshot store on top of the generic
// state store.
func NewUnitStore(store *Store) *UnitStore {
	return &UnitStore{store: store}
}

// Save upserts one unit snapshot keyed by its unique id.
func (s *UnitStore) Save(u casambi.Unit) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal unit: %w", err)
	}
	return s.store.Set(kindUnit, u.UniqueID(), payload)
}

// Load returns all persisted unit snapshots.
func (s *UnitStore) Load() ([]casambi.Unit, error) {
	payloads, _, err := s.store.GetAll(kindUnit)
	if err != nil {
		return nil, err
	}

	units := make([]casambi.Unit, 0, len(payloads))
	for id, payload := range payloads {
		var u casambi.Unit
		if err := json.Unmarshal(payload, &u); err != nil {
			return nil, fmt.Errorf("failed to unmarshal unit %s: %w", id, err)
		}
		units = append(units, u)
	}
	return units, nil
}

// Clear drops all persisted unit snapshots.
func (s *UnitStore) Clear() error {
	return s.store.Clear(kindUnit)
}
