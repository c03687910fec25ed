package casambi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		BaseURL:         srv.URL,
		APIKey:          "test-key",
		Email:           "user@example.com",
		UserPassword:    "site-pass",
		NetworkPassword: "net-pass",
	})
}

func TestCreateUserSession(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/users/session", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-Casambi-Key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body["email"])
		assert.Equal(t, "site-pass", body["password"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"sessionId": "sess-1"})
	}))

	sessionID, err := c.CreateUserSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sessionID)
	assert.Equal(t, "sess-1", c.http.Header.Get("X-Casambi-Session"))
}

func TestCreateUserSession_Unauthorized(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.CreateUserSession(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoginRequired))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.StatusCode)
}

func TestCreateNetworkSession(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/networks/session", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"netB": map[string]any{"id": "netB", "sessionId": "net-sess-b"},
			"netA": map[string]any{"id": "netA", "sessionId": "net-sess-a"},
		})
	}))

	nets, err := c.CreateNetworkSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []NetworkSession{
		{NetworkID: "netA", SessionID: "net-sess-a"},
		{NetworkID: "netB", SessionID: "net-sess-b"},
	}, nets)
}

func TestNetworkState_SessionHeader(t *testing.T) {
	var gotSession string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.Header.Get("X-Casambi-Session")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(NetworkState{ID: "net1"})
	}))

	c.UseSession("sess-2")
	_, err := c.NetworkState(context.Background(), "net1")
	require.NoError(t, err)
	assert.Equal(t, "sess-2", gotSession)

	c.ClearSession()
	_, err = c.NetworkState(context.Background(), "net1")
	require.NoError(t, err)
	assert.Empty(t, gotSession)
}

func TestNetworkState_InvalidSession(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))

	_, err := c.NetworkState(context.Background(), "net1")
	require.Error(t, err)
	assert.True(t, sessionExpired(err))
}

func TestNetworkInformation(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/networks/net1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"name": "Home",
			"units": map[string]any{
				"1": map[string]any{"id": 1, "name": "Spot 1"},
			},
			"scenes": map[string]any{
				"10": map[string]any{"id": 10, "name": "Evening", "position": 1},
			},
		})
	}))

	info, err := c.NetworkInformation(context.Background(), "net1")
	require.NoError(t, err)
	assert.Equal(t, "net1", info.ID)
	assert.Equal(t, "Home", info.Name)
	assert.Len(t, info.Units, 1)
	assert.Len(t, info.Scenes, 1)
}
