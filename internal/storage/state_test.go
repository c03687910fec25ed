package storage

import (
	"path/filepath"
	"testing"

	"github.com/jhellqvist/casambid/internal/casambi"
	"github.com/jhellqvist/casambid/internal/db"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	return NewStore(database.DB)
}

func TestStoreSetGetVersioning(t *testing.T) {
	s := testStore(t)

	payload, version, err := s.Get("unit", "net1-8")
	if err != nil {
		t.Fatal(err)
	}
	if payload != nil || version != 0 {
		t.Errorf("missing entry = %q/%d, want nil/0", payload, version)
	}

	if err := s.Set("unit", "net1-8", []byte(`{"value":0.5}`)); err != nil {
		t.Fatal(err)
	}
	_, version, err = s.Get("unit", "net1-8")
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}

	if err := s.Set("unit", "net1-8", []byte(`{"value":1}`)); err != nil {
		t.Fatal(err)
	}
	payload, version, err = s.Get("unit", "net1-8")
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2 after update", version)
	}
	if string(payload) != `{"value":1}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestStoreDeleteAndClear(t *testing.T) {
	s := testStore(t)

	s.Set("unit", "a", []byte(`{}`))
	s.Set("unit", "b", []byte(`{}`))
	s.Set("session", "casambi", []byte(`{}`))

	if err := s.Delete("unit", "a"); err != nil {
		t.Fatal(err)
	}
	payloads, _, err := s.GetAll("unit")
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads) != 1 {
		t.Errorf("units = %d, want 1 after delete", len(payloads))
	}

	if err := s.Clear("unit"); err != nil {
		t.Fatal(err)
	}
	payloads, _, _ = s.GetAll("unit")
	if len(payloads) != 0 {
		t.Errorf("units = %d, want 0 after clear", len(payloads))
	}
	payloads, _, _ = s.GetAll("session")
	if len(payloads) != 1 {
		t.Error("clearing one kind should not touch other kinds")
	}
}

func TestUnitStoreRoundTrip(t *testing.T) {
	us := NewUnitStore(testStore(t))

	u := casambi.Unit{
		ID: 8, NetworkID: "net1", Name: "Spot 1",
		Value: 0.5, State: casambi.UnitStateOn, Online: true,
	}
	if err := us.Save(u); err != nil {
		t.Fatalf("Save: %v", err)
	}

	units, err := us.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("units = %d, want 1", len(units))
	}
	if units[0].Name != "Spot 1" || units[0].Value != 0.5 {
		t.Errorf("unit = %+v", units[0])
	}

	if err := us.Clear(); err != nil {
		t.Fatal(err)
	}
	units, _ = us.Load()
	if len(units) != 0 {
		t.Errorf("units = %d after clear", len(units))
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ss := NewSessionStore(testStore(t))

	_, ok, err := ss.Load()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("empty store should not return a session")
	}

	in := casambi.Session{UserSessionID: "sess-1", NetworkID: "net1", CreatedAt: 1692700000}
	if err := ss.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, ok, err := ss.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !ok || out != in {
		t.Errorf("loaded = %+v (ok=%v), want %+v", out, ok, in)
	}

	if err := ss.Clear(); err != nil {
		t.Fatal(err)
	}
	_, ok, _ = ss.Load()
	if ok {
		t.Error("session should be gone after clear")
	}
}
