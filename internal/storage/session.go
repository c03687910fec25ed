package storage

import (
	"encoding/json"
	"fmt"

	"github.com/jhellqvist/casambid/internal/casambi"
)

const (
	kindSession  = "session"
	sessionEntry = "casambi"
)

// SessionStore persists the cloud session between runs. The cloud
// throttles session creation, so a restart must not log in when the
// previous session is still valid.
type SessionStore struct {
	store *Store
}

// NewSessionStore creates a session store on top of the generic state
// store.
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

// Load returns the persisted session, if any.
func (s *SessionStore) Load() (casambi.Session, bool, error) {
	payload, _, err := s.store.Get(kindSession, sessionEntry)
	if err != nil {
		return casambi.Session{}, false, err
	}
	if payload == nil {
		return casambi.Session{}, false, nil
	}

	var session casambi.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return casambi.Session{}, false, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, true, nil
}

// Save persists the session.
func (s *SessionStore) Save(session casambi.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.store.Set(kindSession, sessionEntry, payload)
}

// Clear drops the persisted session.
func (s *SessionStore) Clear() error {
	return s.store.Delete(kindSession, sessionEntry)
}
