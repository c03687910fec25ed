package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jhellqvist/casambid/internal/casambi"
	"github.com/jhellqvist/casambid/internal/config"
	"github.com/jhellqvist/casambid/internal/eventbus"
	"github.com/jhellqvist/casambid/internal/storage"
)

// CasambiService wraps the cloud client, the session controller and the
// event bus the push events are fanned out on.
type CasambiService struct {
	cfg *config.Config

	Client     *casambi.Client
	Controller *casambi.Controller
	Bus        *eventbus.Bus
}

// NewCasambiService creates a CasambiService with all components
// initialized but not connected.
func NewCasambiService(cfg *config.Config, sessions *storage.SessionStore) *CasambiService {
	client := casambi.NewClient(casambi.ClientConfig{
		BaseURL:         cfg.Casambi.APIURL,
		APIKey:          cfg.Casambi.APIKey,
		Email:           cfg.Casambi.Email,
		UserPassword:    cfg.Casambi.UserPassword,
		NetworkPassword: cfg.Casambi.NetworkPassword,
		Timeout:         cfg.Casambi.Timeout.Duration(),
		RateLimitRPS:    cfg.Casambi.RateLimitRPS,
	})

	bus := eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	stream := casambi.StreamConfig{
		WSURL:         cfg.Casambi.WSURL,
		MinBackoff:    cfg.Casambi.MinRetryBackoff.Duration(),
		MaxBackoff:    cfg.Casambi.MaxRetryBackoff.Duration(),
		Multiplier:    cfg.Casambi.RetryMultiplier,
		MaxReconnects: cfg.Casambi.MaxReconnects,
	}
	controller := casambi.NewController(client, stream, sessions, bus)

	return &CasambiService{
		cfg:        cfg,
		Client:     client,
		Controller: controller,
		Bus:        bus,
	}
}

// Start logs in to the cloud and loads the network into the mirrors.
func (s *CasambiService) Start(ctx context.Context) error {
	if err := s.Controller.Login(ctx); err != nil {
		return err
	}
	if err := s.Controller.Initialize(ctx); err != nil {
		return err
	}
	log.Info().Str("network_id", s.Controller.NetworkID()).Msg("Connected to Casambi Cloud")
	return nil
}

// RestoreSnapshots feeds persisted unit snapshots into the mirror.
// Units already seen live keep their live state.
func (s *CasambiService) RestoreSnapshots(store *storage.UnitStore) {
	snapshots, err := store.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load unit snapshots")
		return
	}
	units := s.Controller.Units()
	if units == nil {
		return
	}
	for _, u := range snapshots {
		units.Restore(u)
	}
	if len(snapshots) > 0 {
		log.Info().Int("count", len(snapshots)).Msg("Restored unit snapshots")
	}
}

// StartBackground starts the WebSocket wire and the state poller.
// The onFatalError callback is called when reconnecting is given up.
func (s *CasambiService) StartBackground(ctx context.Context, onFatalError func(error)) {
	go func() {
		if err := s.Controller.Run(ctx); err != nil {
			if errors.Is(err, casambi.ErrMaxReconnectsExceeded) {
				log.Error().Msg("Wire: max reconnects exceeded, triggering shutdown")
				if onFatalError != nil {
					onFatalError(err)
				}
			} else {
				log.Error().Err(err).Msg("Wire error")
			}
		}
	}()

	if s.cfg.Poll.Enabled {
		go s.runPoller(ctx)
	}
}

// runPoller periodically re-fetches the network state over REST.
// Polling catches up on transitions missed while the wire was down.
func (s *CasambiService) runPoller(ctx context.Context) {
	interval := s.cfg.Poll.Interval.Duration()
	log.Info().Dur("interval", interval).Msg("State poller started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Controller.RefreshState(ctx); err != nil {
				log.Error().Err(err).Msg("State poll failed")
			}
		}
	}
}

// Close releases all resources.
func (s *CasambiService) Close() {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		s.Bus.Close(ctx)
	}
}
