package casambi

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jhellqvist/casambid/internal/metrics"
)

// DefaultBaseURL is the Casambi Cloud REST endpoint.
const DefaultBaseURL = "https://door.casambi.com/v1"

// ClientConfig configures the REST client.
type ClientConfig struct {
	BaseURL         string
	APIKey          string
	Email           string
	UserPassword    string
	NetworkPassword string
	Timeout         time.Duration
	// RateLimitRPS throttles outgoing requests; Casambi enforces per-key
	// quotas. 0 disables throttling.
	RateLimitRPS float64
}

// Client talks to the Casambi Cloud REST API. It carries the developer
// API key on every request and, after login, the user session id.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	cfg     ClientConfig
}

// NewClient creates a REST client for the Casambi Cloud API.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	r := resty.New()
	r.SetBaseURL(cfg.BaseURL)
	r.SetTimeout(cfg.Timeout)
	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("X-Casambi-Key", cfg.APIKey)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}

	return &Client{http: r, limiter: limiter, cfg: cfg}
}

// UseSession attaches a previously created user session id to all
// subsequent requests.
func (c *Client) UseSession(sessionID string) {
	c.http.SetHeader("X-Casambi-Session", sessionID)
}

// ClearSession removes the session header, forcing a fresh login.
func (c *Client) ClearSession() {
	c.http.Header.Del("X-Casambi-Session")
}

type userSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// CreateUserSession logs in with the user (site) password and returns
// the session id. The id is installed on the client for later requests.
func (c *Client) CreateUserSession(ctx context.Context) (string, error) {
	var out userSessionResponse
	err := c.post(ctx, "/users/session", map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.UserPassword,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("create user session: %w", err)
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("create user session: empty session id in response")
	}

	c.UseSession(out.SessionID)
	log.Debug().Msg("User session created")
	return out.SessionID, nil
}

// NetworkSession is one network visible after a network-password
// login. Its session id drives the wire when no user session exists.
type NetworkSession struct {
	NetworkID string
	SessionID string
}

// CreateNetworkSession logs in with the network password and returns
// the networks visible to this account, sorted by id for determinism.
func (c *Client) CreateNetworkSession(ctx context.Context) ([]NetworkSession, error) {
	var out map[string]struct {
		SessionID string `json:"sessionId"`
	}
	err := c.post(ctx, "/networks/session", map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.NetworkPassword,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("create network session: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("create network session: no networks in response")
	}

	nets := make([]NetworkSession, 0, len(out))
	for id, entry := range out {
		nets = append(nets, NetworkSession{NetworkID: id, SessionID: entry.SessionID})
	}
	sort.Slice(nets, func(i, j int) bool { return nets[i].NetworkID < nets[j].NetworkID })

	ids := make([]string, len(nets))
	for i, n := range nets {
		ids[i] = n.NetworkID
	}
	log.Debug().Strs("network_ids", ids).Msg("Network session created")
	return nets, nil
}

// NetworkInformation fetches units and scenes of a network.
func (c *Client) NetworkInformation(ctx context.Context, networkID string) (*NetworkInformation, error) {
	var out NetworkInformation
	if err := c.get(ctx, "/networks/"+networkID, &out); err != nil {
		return nil, fmt.Errorf("get network information: %w", err)
	}
	if out.ID == "" {
		out.ID = networkID
	}
	return &out, nil
}

// NetworkState fetches the live state of every unit in a network.
func (c *Client) NetworkState(ctx context.Context, networkID string) (*NetworkState, error) {
	var out NetworkState
	if err := c.get(ctx, "/networks/"+networkID+"/state", &out); err != nil {
		return nil, fmt.Errorf("get network state: %w", err)
	}
	return &out, nil
}

// VerifyUserPassword checks a user (site) password without keeping the
// resulting session.
func (c *Client) VerifyUserPassword(ctx context.Context, password string) error {
	var out userSessionResponse
	return c.post(ctx, "/users/session", map[string]string{
		"email":    c.cfg.Email,
		"password": password,
	}, &out)
}

// VerifyNetworkPassword checks a network password.
func (c *Client) VerifyNetworkPassword(ctx context.Context, password string) error {
	var out map[string]any
	return c.post(ctx, "/networks/session", map[string]string{
		"email":    c.cfg.Email,
		"password": password,
	}, &out)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, resty.MethodPost, path, body, result)
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, resty.MethodGet, path, nil, result)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	metrics.APIRequests.WithLabelValues(strconv.Itoa(resp.StatusCode())).Inc()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Msg("Casambi API request")

	if resp.IsError() {
		return newAPIError(resp.StatusCode(), resp.Request.URL)
	}
	return nil
}
