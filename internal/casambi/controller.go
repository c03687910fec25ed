package casambi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jhellqvist/casambid/internal/eventbus"
	"github.com/jhellqvist/casambid/internal/metrics"
)

// Session is the persisted authentication state. Casambi throttles
// session creation hard, so sessions are reused across restarts.
type Session struct {
	UserSessionID string `json:"user_session_id"`
	NetworkID     string `json:"network_id"`
	CreatedAt     int64  `json:"created_at"`
}

// SessionStore persists sessions between runs.
type SessionStore interface {
	Load() (Session, bool, error)
	Save(Session) error
	Clear() error
}

// StreamConfig controls the WebSocket reconnect behavior.
type StreamConfig struct {
	WSURL         string
	MinBackoff    time.Duration
	MaxBackoff    time.Duration
	Multiplier    float64
	MaxReconnects int // 0 = infinite
}

// DefaultStreamConfig returns the reconnect settings used when the
// configuration leaves them out.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		MinBackoff: 1 * time.Second,
		MaxBackoff: 2 * time.Minute,
		Multiplier: 2.0,
	}
}

// Connection states published on the event bus.
const (
	ConnectionStateConnected    = "connected"
	ConnectionStateDisconnected = "disconnected"
)

// Controller owns the full cloud session lifecycle: login, session
// reuse, the WebSocket wire with reconnects, the unit and scene mirrors
// and all outgoing control operations.
type Controller struct {
	client   *Client
	stream   StreamConfig
	sessions SessionStore
	bus      *eventbus.Bus

	// loginMu serializes re-login so concurrent 401s trigger a single
	// session creation.
	loginMu sync.Mutex

	mu        sync.Mutex
	sessionID string
	networkID string
	wire      *wire
	wireID    int

	units  *Units
	scenes *Scenes
}

// NewController creates a controller. The session store and event bus
// are optional; without a store every start logs in from scratch, and
// without a bus no events are published.
func NewController(client *Client, stream StreamConfig, sessions SessionStore, bus *eventbus.Bus) *Controller {
	if stream.MinBackoff == 0 {
		stream.MinBackoff = DefaultStreamConfig().MinBackoff
	}
	if stream.MaxBackoff == 0 {
		stream.MaxBackoff = DefaultStreamConfig().MaxBackoff
	}
	if stream.Multiplier == 0 {
		stream.Multiplier = DefaultStreamConfig().Multiplier
	}

	return &Controller{
		client:   client,
		stream:   stream,
		sessions: sessions,
		bus:      bus,
		wireID:   newWireID(),
	}
}

// Login establishes an authenticated session, preferring a persisted
// one. A stored session is validated with a cheap state fetch; when it
// is gone stale the controller falls back to a fresh login.
func (c *Controller) Login(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if c.sessions != nil {
		if s, ok, err := c.sessions.Load(); err != nil {
			log.Warn().Err(err).Msg("Failed to load persisted session")
		} else if ok && s.UserSessionID != "" && s.NetworkID != "" {
			c.client.UseSession(s.UserSessionID)
			if _, err := c.client.NetworkState(ctx, s.NetworkID); err == nil {
				c.setSession(s.UserSessionID, s.NetworkID)
				log.Info().Str("network_id", s.NetworkID).Msg("Reusing persisted session")
				return nil
			} else if !sessionExpired(err) {
				return err
			}
			log.Info().Msg("Persisted session expired, logging in")
			c.client.ClearSession()
		}
	}

	return c.freshLogin(ctx)
}

// relogin discards a stale session and creates a new one. Callers pass
// the session id that failed; when a concurrent caller already replaced
// it, relogin returns without logging in again.
func (c *Controller) relogin(ctx context.Context, stale string) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	c.mu.Lock()
	current := c.sessionID
	c.mu.Unlock()
	if current != "" && current != stale {
		return nil
	}

	c.client.ClearSession()
	if c.sessions != nil {
		if err := c.sessions.Clear(); err != nil {
			log.Warn().Err(err).Msg("Failed to clear persisted session")
		}
	}
	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()

	return c.freshLogin(ctx)
}

// freshLogin logs in and persists the result. With a user password it
// performs the two-step login; with only a network password the
// network session drives both the REST API and the wire. Callers hold
// loginMu.
func (c *Controller) freshLogin(ctx context.Context) error {
	var sessionID string

	if c.client.cfg.UserPassword != "" {
		id, err := c.client.CreateUserSession(ctx)
		if err != nil {
			if errors.Is(err, ErrForbidden) {
				log.Error().Msg("Session creation throttled, retry later")
			}
			return err
		}
		sessionID = id
	}

	nets, err := c.client.CreateNetworkSession(ctx)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			log.Error().Msg("Session creation throttled, retry later")
		}
		return err
	}
	networkID := nets[0].NetworkID
	if len(nets) > 1 {
		ids := make([]string, len(nets))
		for i, n := range nets {
			ids[i] = n.NetworkID
		}
		log.Info().Strs("network_ids", ids).Str("selected", networkID).Msg("Multiple networks visible, using first")
	}

	if sessionID == "" {
		if nets[0].SessionID == "" {
			return fmt.Errorf("network session: empty session id for network %s", networkID)
		}
		sessionID = nets[0].SessionID
		c.client.UseSession(sessionID)
	}

	c.setSession(sessionID, networkID)

	if c.sessions != nil {
		s := Session{
			UserSessionID: sessionID,
			NetworkID:     networkID,
			CreatedAt:     time.Now().Unix(),
		}
		if err := c.sessions.Save(s); err != nil {
			log.Warn().Err(err).Msg("Failed to persist session")
		}
	}

	log.Info().Str("network_id", networkID).Msg("Logged in to Casambi Cloud")
	return nil
}

func (c *Controller) setSession(sessionID, networkID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessionID = sessionID
	c.networkID = networkID
	if c.units == nil || c.units.networkID != networkID {
		c.units = NewUnits(networkID)
		c.scenes = NewScenes(networkID)
	}
}

// Bus returns the event bus push events are published on. May be nil.
func (c *Controller) Bus() *eventbus.Bus {
	return c.bus
}

// NetworkID returns the id of the controlled network. Empty before
// Login succeeds.
func (c *Controller) NetworkID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.networkID
}

// Units returns the unit mirror. Nil before Login succeeds.
func (c *Controller) Units() *Units {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.units
}

// Scenes returns the scene mirror. Nil before Login succeeds.
func (c *Controller) Scenes() *Scenes {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scenes
}

// Initialize loads the network information and the live state into the
// mirrors. Call after Login.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	networkID, units, scenes := c.networkID, c.units, c.scenes
	c.mu.Unlock()
	if networkID == "" {
		return ErrLoginRequired
	}

	info, err := c.client.NetworkInformation(ctx, networkID)
	if err != nil {
		return err
	}
	units.LoadNetworkInformation(info.Units)
	scenes.LoadNetworkInformation(info.Scenes)

	state, err := c.client.NetworkState(ctx, networkID)
	if err != nil {
		return err
	}
	units.ApplyNetworkState(state)

	metrics.UnitsOnline.Set(float64(countOnline(units.List())))
	log.Info().
		Str("network", info.Name).
		Int("units", len(units.List())).
		Int("scenes", len(scenes.List())).
		Msg("Network initialized")
	return nil
}

// RefreshState polls the live network state and publishes events for
// every unit that changed. The WebSocket misses transitions while
// disconnected; the poll catches up.
func (c *Controller) RefreshState(ctx context.Context) error {
	c.mu.Lock()
	sessionID, networkID, units := c.sessionID, c.networkID, c.units
	c.mu.Unlock()
	if networkID == "" {
		return ErrLoginRequired
	}

	state, err := c.client.NetworkState(ctx, networkID)
	if err != nil {
		if sessionExpired(err) {
			if lerr := c.relogin(ctx, sessionID); lerr != nil {
				return lerr
			}
			return c.RefreshState(ctx)
		}
		return err
	}

	changed := units.ApplyNetworkState(state)
	for i := range changed {
		c.publishUnit(&changed[i])
	}
	metrics.UnitsOnline.Set(float64(countOnline(units.List())))
	return nil
}

// Run drives the WebSocket wire with exponential backoff reconnects.
// It blocks until the context is cancelled or the reconnect budget is
// exhausted. Login must have succeeded before calling Run.
func (c *Controller) Run(ctx context.Context) error {
	retryCount := 0
	currentBackoff := c.stream.MinBackoff

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		c.mu.Lock()
		used := c.sessionID
		c.mu.Unlock()

		connected, err := c.connect(ctx)
		if connected {
			// Reset retry count and backoff on successful connection
			retryCount = 0
			currentBackoff = c.stream.MinBackoff
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if sessionExpired(err) {
				if lerr := c.relogin(ctx, used); lerr != nil {
					log.Warn().Err(lerr).Msg("Re-login failed")
				}
			}

			retryCount++
			metrics.Reconnects.Inc()

			if c.stream.MaxReconnects > 0 && retryCount > c.stream.MaxReconnects {
				log.Error().
					Int("max_reconnects", c.stream.MaxReconnects).
					Msg("Wire: max reconnects exceeded, terminating")
				return ErrMaxReconnectsExceeded
			}

			log.Warn().
				Err(err).
				Dur("backoff", currentBackoff).
				Int("retry", retryCount).
				Int("max_reconnects", c.stream.MaxReconnects).
				Msg("Wire disconnected, reconnecting")

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(currentBackoff):
			}

			nextBackoff := time.Duration(float64(currentBackoff) * c.stream.Multiplier)
			if nextBackoff > c.stream.MaxBackoff {
				nextBackoff = c.stream.MaxBackoff
			}
			currentBackoff = nextBackoff

			continue
		}

		// Clean shutdown
		return nil
	}
}

// connect dials the wire and pumps incoming frames until the connection
// drops or the context ends. The bool reports whether the dial
// succeeded, so the caller can reset its backoff.
func (c *Controller) connect(ctx context.Context) (bool, error) {
	c.mu.Lock()
	sessionID, networkID := c.sessionID, c.networkID
	c.mu.Unlock()
	if sessionID == "" || networkID == "" {
		return false, ErrLoginRequired
	}

	w, err := dialWire(ctx, c.stream.WSURL, c.client.cfg.APIKey, networkID, sessionID, c.wireID)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.wire = w
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.wire == w {
			c.wire = nil
		}
		c.mu.Unlock()
		w.close()
		if c.bus != nil {
			c.bus.PublishConnectionState(ConnectionStateDisconnected, c.wireID)
		}
	}()

	if c.bus != nil {
		c.bus.PublishConnectionState(ConnectionStateConnected, c.wireID)
	}
	log.Info().Int("wire", c.wireID).Msg("Connected to Casambi bridge")

	// Keepalive pings; the pong handler pushes the read deadline.
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				if err := w.ping(); err != nil {
					log.Debug().Err(err).Msg("Ping failed")
					return
				}
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return true, nil
		}
		msg, err := w.read()
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, err
		}
		c.handleMessage(msg)
	}
}

func (c *Controller) handleMessage(msg *Message) {
	c.mu.Lock()
	units := c.units
	c.mu.Unlock()

	switch msg.Method {
	case MethodUnitChanged:
		if u := units.ApplyUnitChanged(msg); u != nil {
			c.publishUnit(u)
			metrics.UnitsOnline.Set(float64(countOnline(units.List())))
		}

	case MethodPeerChanged:
		changed := units.ApplyPeerChanged(msg)
		online := units.Online()
		if !online {
			log.Warn().Msg("Network gateway went offline")
		}
		if c.bus != nil {
			snapshots := make([]map[string]interface{}, 0, len(changed))
			for i := range changed {
				snapshots = append(snapshots, unitEventData(&changed[i]))
			}
			c.bus.PublishPeerChanged(online, snapshots)
		}
		metrics.UnitsOnline.Set(float64(countOnline(changed)))

	default:
		log.Trace().Str("method", msg.Method).Msg("Unhandled wire method")
	}
}

func (c *Controller) publishUnit(u *Unit) {
	log.Debug().
		Int("unit_id", u.ID).
		Str("name", u.Name).
		Float64("value", u.Value).
		Bool("online", u.Online).
		Msg("Unit changed")

	if c.bus != nil {
		c.bus.PublishUnitChanged(unitEventData(u))
	}
}

// unitEventData flattens a unit for event bus consumers.
func unitEventData(u *Unit) map[string]interface{} {
	return map[string]interface{}{
		"id":            u.ID,
		"unique_id":     u.UniqueID(),
		"network_id":    u.NetworkID,
		"name":          u.Name,
		"address":       u.Address,
		"value":         u.Value,
		"state":         u.State,
		"online":        u.Online,
		"fixture_id":    u.FixtureID,
		"fixture_model": u.FixtureModel,
		"oem":           u.OEM,
	}
}

func countOnline(units []Unit) int {
	n := 0
	for _, u := range units {
		if u.Online {
			n++
		}
	}
	return n
}

// TurnUnitOn sets a unit to full brightness.
func (c *Controller) TurnUnitOn(id int) error {
	return c.SetUnitValue(id, 1)
}

// TurnUnitOff switches a unit off.
func (c *Controller) TurnUnitOff(id int) error {
	return c.SetUnitValue(id, 0)
}

// SetUnitValue sets the brightness of a unit. Value must be within
// [0, 1]; 0 turns the unit off.
func (c *Controller) SetUnitValue(id int, value float64) error {
	tc, err := TargetDimmer(value)
	if err != nil {
		return err
	}
	return c.sendControl(id, tc)
}

// SetUnitColorTemperature sets the color temperature of a unit in
// kelvin. The value is rounded up to the 50 K grid and clamped to the
// range the fixture supports.
func (c *Controller) SetUnitColorTemperature(id, kelvin int) error {
	kelvin = RoundKelvin(kelvin)
	if u, ok := c.lookupUnit(id); ok {
		min, max, _ := u.ColorTemperatureRange()
		kelvin = clampKelvin(kelvin, min, max)
	}
	return c.sendControl(id, TargetColorTemperature(kelvin))
}

// SetUnitColorTemperatureMired sets the color temperature in mireds.
func (c *Controller) SetUnitColorTemperatureMired(id, mired int) error {
	kelvin := KelvinFromMired(mired)
	if kelvin == 0 {
		return fmt.Errorf("invalid mired value %d", mired)
	}
	return c.SetUnitColorTemperature(id, kelvin)
}

// SetUnitRGB sets the color of a unit.
func (c *Controller) SetUnitRGB(id int, r, g, b uint8, sendRGBFormat bool) error {
	return c.sendControl(id, TargetRGB(r, g, b, sendRGBFormat))
}

// SetUnitRGBW sets the color and white channel of an RGBW unit.
func (c *Controller) SetUnitRGBW(id int, r, g, b, w uint8, sendRGBFormat bool) error {
	return c.sendControl(id, TargetRGBW(r, g, b, w, sendRGBFormat))
}

// TurnSceneOn activates a scene at full level.
func (c *Controller) TurnSceneOn(id int) error {
	return c.setSceneLevel(id, 1)
}

// TurnSceneOff deactivates a scene.
func (c *Controller) TurnSceneOff(id int) error {
	return c.setSceneLevel(id, 0)
}

// SetSceneLevel activates a scene at a given level within [0, 1].
func (c *Controller) SetSceneLevel(id int, level float64) error {
	if level < 0 || level > 1 {
		return fmt.Errorf("scene level %v out of range [0, 1]", level)
	}
	return c.setSceneLevel(id, level)
}

func (c *Controller) setSceneLevel(id int, level float64) error {
	w, err := c.currentWire()
	if err != nil {
		return err
	}

	msg := sceneMessage{
		Wire:   w.id,
		Method: MethodControlScene,
		ID:     id,
		Level:  level,
	}
	if err := c.send(w, msg); err != nil {
		return err
	}

	metrics.CommandsSent.WithLabelValues(MethodControlScene).Inc()
	if c.bus != nil {
		c.bus.PublishCommand(MethodControlScene, id, uuid.NewString(), map[string]interface{}{
			"level": level,
		})
	}
	log.Debug().Int("scene_id", id).Float64("level", level).Msg("Scene control sent")
	return nil
}

// sendControl ships a controlUnit frame over the wire.
func (c *Controller) sendControl(id int, tc TargetControls) error {
	w, err := c.currentWire()
	if err != nil {
		return err
	}

	msg := controlMessage{
		Wire:           w.id,
		Method:         MethodControlUnit,
		ID:             id,
		TargetControls: tc,
	}
	if err := c.send(w, msg); err != nil {
		return err
	}

	metrics.CommandsSent.WithLabelValues(MethodControlUnit).Inc()
	if c.bus != nil {
		c.bus.PublishCommand(MethodControlUnit, id, uuid.NewString(), map[string]interface{}{
			"target_controls": map[string]map[string]any(tc),
		})
	}
	log.Debug().Int("unit_id", id).Interface("target_controls", tc).Msg("Unit control sent")
	return nil
}

// send writes a frame and drops the wire on failure so Run reconnects.
func (c *Controller) send(w *wire, v any) error {
	if err := w.sendJSON(v); err != nil {
		c.mu.Lock()
		if c.wire == w {
			c.wire = nil
		}
		c.mu.Unlock()
		w.close()
		return err
	}
	return nil
}

func (c *Controller) currentWire() (*wire, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wire == nil {
		return nil, ErrWireClosed
	}
	return c.wire, nil
}

func (c *Controller) lookupUnit(id int) (Unit, bool) {
	c.mu.Lock()
	units := c.units
	c.mu.Unlock()
	if units == nil {
		return Unit{}, false
	}
	return units.Get(id)
}
