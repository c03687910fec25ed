package casambi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSessionStore struct {
	mu      sync.Mutex
	session Session
	ok      bool
	saves   int
	clears  int
}

func (m *memSessionStore) Load() (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.ok, nil
}

func (m *memSessionStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session, m.ok = s, true
	m.saves++
	return nil
}

func (m *memSessionStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session, m.ok = Session{}, false
	m.clears++
	return nil
}

// fakeCloud implements the REST endpoints the controller touches.
type fakeCloud struct {
	mu            sync.Mutex
	logins        int
	validSessions map[string]bool
	nextSession   string
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{validSessions: map[string]bool{}, nextSession: "sess-1"}
}

func (f *fakeCloud) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/session", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logins++
		id := f.nextSession
		f.validSessions[id] = true
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"sessionId": id})
	})
	mux.HandleFunc("/networks/session", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.validSessions["net-sess-1"] = true
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"net1": map[string]any{"id": "net1", "sessionId": "net-sess-1"},
		})
	})
	mux.HandleFunc("/networks/net1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"name": "Home",
			"units": map[string]any{
				"1": map[string]any{"id": 1, "name": "Spot 1", "fixtureId": 4027},
			},
			"scenes": map[string]any{
				"10": map[string]any{"id": 10, "name": "Evening"},
			},
		})
	})
	mux.HandleFunc("/networks/net1/state", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		valid := f.validSessions[r.Header.Get("X-Casambi-Session")]
		f.mu.Unlock()
		if !valid {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id": "net1",
			"units": map[string]any{
				"1": map[string]any{"id": 1, "name": "Spot 1", "online": true, "dimLevel": 0.5,
					"controls": []any{[]any{
						map[string]any{"type": "Dimmer", "value": 0.5},
						map[string]any{"type": "CCT", "value": 3000, "min": 2700, "max": 4000},
					}}},
			},
		})
	})
	return mux
}

func (f *fakeCloud) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeCloud) invalidate(session string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.validSessions, session)
}

func testController(t *testing.T, cloud *fakeCloud, store SessionStore) *Controller {
	t.Helper()

	srv := httptest.NewServer(cloud.handler())
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		Email:        "user@example.com",
		UserPassword: "site-pass",
	})
	return NewController(client, DefaultStreamConfig(), store, nil)
}

func TestControllerLogin_Fresh(t *testing.T) {
	cloud := newFakeCloud()
	store := &memSessionStore{}
	c := testController(t, cloud, store)

	require.NoError(t, c.Login(context.Background()))

	assert.Equal(t, "net1", c.NetworkID())
	assert.Equal(t, 1, cloud.loginCount())
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "sess-1", store.session.UserSessionID)
	assert.Equal(t, "net1", store.session.NetworkID)
}

func TestControllerLogin_NetworkPasswordOnly(t *testing.T) {
	cloud := newFakeCloud()
	store := &memSessionStore{}

	srv := httptest.NewServer(cloud.handler())
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		BaseURL:         srv.URL,
		APIKey:          "test-key",
		Email:           "user@example.com",
		NetworkPassword: "net-pass",
	})
	c := NewController(client, DefaultStreamConfig(), store, nil)
	ctx := context.Background()

	require.NoError(t, c.Login(ctx))

	assert.Equal(t, 0, cloud.loginCount(), "without a user password no user session is created")
	assert.Equal(t, "net1", c.NetworkID())
	assert.Equal(t, "net-sess-1", store.session.UserSessionID)

	// The network session must authenticate REST calls too
	require.NoError(t, c.RefreshState(ctx))
}

func TestControllerLogin_ReusesPersistedSession(t *testing.T) {
	cloud := newFakeCloud()
	cloud.validSessions["old-sess"] = true
	store := &memSessionStore{
		session: Session{UserSessionID: "old-sess", NetworkID: "net1"},
		ok:      true,
	}
	c := testController(t, cloud, store)

	require.NoError(t, c.Login(context.Background()))

	assert.Equal(t, 0, cloud.loginCount(), "persisted session should be reused without a login")
	assert.Equal(t, "net1", c.NetworkID())
}

func TestControllerLogin_StalePersistedSession(t *testing.T) {
	cloud := newFakeCloud()
	store := &memSessionStore{
		session: Session{UserSessionID: "stale", NetworkID: "net1"},
		ok:      true,
	}
	c := testController(t, cloud, store)

	require.NoError(t, c.Login(context.Background()))

	assert.Equal(t, 1, cloud.loginCount(), "stale session should trigger one fresh login")
	assert.Equal(t, "sess-1", store.session.UserSessionID)
}

func TestControllerInitialize(t *testing.T) {
	cloud := newFakeCloud()
	c := testController(t, cloud, &memSessionStore{})
	ctx := context.Background()

	require.NoError(t, c.Login(ctx))
	require.NoError(t, c.Initialize(ctx))

	u, ok := c.Units().Get(1)
	require.True(t, ok)
	assert.Equal(t, "Spot 1", u.Name)
	assert.Equal(t, 0.5, u.Value)
	assert.True(t, u.Online)

	s, ok := c.Scenes().Get(10)
	require.True(t, ok)
	assert.Equal(t, "Evening", s.Name)
}

func TestControllerRefreshState_ReloginOnInvalidSession(t *testing.T) {
	cloud := newFakeCloud()
	store := &memSessionStore{}
	c := testController(t, cloud, store)
	ctx := context.Background()

	require.NoError(t, c.Login(ctx))
	require.Equal(t, 1, cloud.loginCount())

	cloud.invalidate("sess-1")
	cloud.mu.Lock()
	cloud.nextSession = "sess-2"
	cloud.mu.Unlock()

	require.NoError(t, c.RefreshState(ctx))

	assert.Equal(t, 2, cloud.loginCount())
	assert.Equal(t, "sess-2", store.session.UserSessionID)
	assert.Equal(t, 1, store.clears)
}

func TestControllerControls_RequireWire(t *testing.T) {
	cloud := newFakeCloud()
	c := testController(t, cloud, &memSessionStore{})
	require.NoError(t, c.Login(context.Background()))

	assert.ErrorIs(t, c.TurnUnitOn(1), ErrWireClosed)
	assert.ErrorIs(t, c.TurnSceneOn(10), ErrWireClosed)
}

func TestControllerSetColorTemperature_ClampsToFixtureRange(t *testing.T) {
	frames := make(chan []byte, 4)
	wsURL := bridgeServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- payload
		}
	})

	cloud := newFakeCloud()
	srv := httptest.NewServer(cloud.handler())
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		Email:        "user@example.com",
		UserPassword: "site-pass",
	})
	stream := DefaultStreamConfig()
	stream.WSURL = wsURL
	c := NewController(client, stream, &memSessionStore{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.Login(ctx))
	require.NoError(t, c.Initialize(ctx))

	go c.Run(ctx)
	require.Eventually(t, func() bool {
		_, err := c.currentWire()
		return err == nil
	}, 2*time.Second, 10*time.Millisecond, "wire never came up")

	// Open handshake
	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("open frame not received")
	}

	// The fixture supports 2700-4000 K, so 9000 K must leave as 4000 K
	require.NoError(t, c.SetUnitColorTemperature(1, 9000))

	select {
	case payload := <-frames:
		var sent map[string]any
		require.NoError(t, json.Unmarshal(payload, &sent))
		targets := sent["targetControls"].(map[string]any)
		cct := targets[ControlColorTemperature].(map[string]any)
		assert.Equal(t, float64(4000), cct["value"])
	case <-time.After(2 * time.Second):
		t.Fatal("control frame not received")
	}
}

func TestControllerSetUnitValue_Validation(t *testing.T) {
	cloud := newFakeCloud()
	c := testController(t, cloud, &memSessionStore{})

	err := c.SetUnitValue(1, 1.5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWireClosed, "range check runs before the wire check")
}

func TestControllerSetSceneLevel_Validation(t *testing.T) {
	cloud := newFakeCloud()
	c := testController(t, cloud, &memSessionStore{})

	require.Error(t, c.SetSceneLevel(10, -0.1))
	require.Error(t, c.SetSceneLevel(10, 1.1))
}
