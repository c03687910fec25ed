package app

import (
	"context"

	"github.com/jhellqvist/casambid/internal/config"
	"github.com/jhellqvist/casambid/internal/db"
	"github.com/jhellqvist/casambid/internal/events/push"
	"github.com/jhellqvist/casambid/internal/ledger"
	"github.com/jhellqvist/casambid/internal/storage"
	"github.com/jhellqvist/casambid/internal/storage/kv"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger

	// Persistence (generic JSON store plus typed views)
	Store    *storage.Store
	Units    *storage.UnitStore
	Sessions *storage.SessionStore
	KV       *kv.Manager

	// High-level services
	Casambi *CasambiService
	Lua     *LuaService
	Events  *EventService
	Health  *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	// Initialize ledger
	s.Ledger = ledger.New(database.DB)

	// Initialize persistence
	s.Store = storage.NewStore(database.DB)
	s.Units = storage.NewUnitStore(s.Store)
	s.Sessions = storage.NewSessionStore(s.Store)
	s.KV = kv.NewManager(database.DB)

	// Initialize Casambi service (client, controller, event bus)
	s.Casambi = NewCasambiService(cfg, s.Sessions)

	// Initialize Lua service
	s.Lua = NewLuaService(cfg, s.Casambi.Controller, s.KV)

	// Initialize event recorder
	s.Events = NewEventService(cfg, s.Casambi.Bus, s.Ledger, s.Units, s.Casambi.Controller)

	// Initialize health service
	s.Health = NewHealthService(cfg)

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a fatal error occurs (e.g., max reconnects exceeded).
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Log in to the cloud and load the network
	if err := s.Casambi.Start(ctx); err != nil {
		return err
	}

	// Feed persisted snapshots into the mirror (live state wins)
	s.Casambi.RestoreSnapshots(s.Units)

	// The Lua runtime only runs when a script is configured
	if s.cfg.Script != "" {
		// Load the script before starting the worker
		if err := s.Lua.LoadScript(); err != nil {
			return err
		}

		// Register push event handlers (after the script is loaded,
		// so all on_unit/on_peer/on_connection registrations are visible)
		push.RegisterHandlers(ctx, s.Lua.GetPushModule(), s.Casambi.Bus, s.Lua)
	}

	// Recorders must see events from the first wire connect
	s.Events.Start(ctx)

	// Start all background services
	if s.cfg.Script != "" {
		s.Lua.Start(ctx)
	}
	go s.KV.RunCleanup(ctx, s.cfg.Ledger.CleanupInterval.Duration())
	s.Casambi.StartBackground(ctx, onFatalError)
	s.Health.Start(ctx)

	return nil
}

// ClearState clears all persisted unit snapshots and the session.
func (s *Services) ClearState() error {
	if err := s.Units.Clear(); err != nil {
		return err
	}
	return s.Sessions.Clear()
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Lua != nil {
		s.Lua.Close()
	}
	if s.Casambi != nil {
		s.Casambi.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
