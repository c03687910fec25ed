package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jhellqvist/casambid/internal/casambi"
	"github.com/jhellqvist/casambid/internal/config"
	"github.com/jhellqvist/casambid/internal/eventbus"
	"github.com/jhellqvist/casambid/internal/ledger"
	"github.com/jhellqvist/casambid/internal/storage"
)

// EventService records bus events into the ledger, keeps the persisted
// unit snapshots current and prunes old ledger entries.
type EventService struct {
	cfg        *config.Config
	bus        *eventbus.Bus
	ledger     *ledger.Ledger
	unitStore  *storage.UnitStore
	controller *casambi.Controller
}

// NewEventService creates a new EventService.
func NewEventService(
	cfg *config.Config,
	bus *eventbus.Bus,
	lg *ledger.Ledger,
	unitStore *storage.UnitStore,
	controller *casambi.Controller,
) *EventService {
	return &EventService{
		cfg:        cfg,
		bus:        bus,
		ledger:     lg,
		unitStore:  unitStore,
		controller: controller,
	}
}

// Start subscribes the recorders and starts the retention loop.
func (s *EventService) Start(ctx context.Context) {
	s.setupUnitRecorder()
	s.setupPeerRecorder()
	s.setupCommandRecorder()

	go s.runRetention(ctx)
}

// setupUnitRecorder persists unit transitions: a snapshot for restarts
// and a ledger entry for history.
func (s *EventService) setupUnitRecorder() {
	s.bus.Subscribe(eventbus.EventTypeUnitChanged, func(event eventbus.Event) {
		unitID, _ := event.Data["id"].(int)
		uniqueID, _ := event.Data["unique_id"].(string)

		if units := s.controller.Units(); units != nil {
			if u, ok := units.Get(unitID); ok {
				if err := s.unitStore.Save(u); err != nil {
					log.Error().Err(err).Int("unit_id", unitID).Msg("Failed to persist unit snapshot")
				}
			}
		}

		if err := s.ledger.AppendWithSource(ledger.EventUnitChanged, "", "wire", uniqueID, event.Data); err != nil {
			log.Error().Err(err).Msg("Failed to record unit change")
		}
	})
}

// setupPeerRecorder records gateway transitions.
func (s *EventService) setupPeerRecorder() {
	s.bus.Subscribe(eventbus.EventTypePeerChanged, func(event eventbus.Event) {
		if err := s.ledger.AppendWithSource(ledger.EventPeerChanged, "", "wire", "", event.Data); err != nil {
			log.Error().Err(err).Msg("Failed to record peer change")
		}
	})
}

// setupCommandRecorder records outgoing control commands. The
// idempotency key dedupes retried commands at the ledger level.
func (s *EventService) setupCommandRecorder() {
	s.bus.Subscribe(eventbus.EventTypeCommand, func(event eventbus.Event) {
		key, _ := event.Data["idempotency_key"].(string)

		if err := s.ledger.AppendWithSource(ledger.EventCommandSent, key, "controller", "", event.Data); err != nil {
			log.Error().Err(err).Msg("Failed to record command")
		}
	})
}

// runRetention prunes ledger entries past the configured retention.
func (s *EventService) runRetention(ctx context.Context) {
	interval := s.cfg.Ledger.CleanupInterval.Duration()
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Ledger cleanup failed")
				continue
			}
			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("Pruned old ledger entries")
			}
		}
	}
}
