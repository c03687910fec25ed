package push

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jhellqvist/casambid/internal/eventbus"
	"github.com/jhellqvist/casambid/internal/events/middleware"
	"github.com/jhellqvist/casambid/internal/lua/exec"
)

// HandlerRegistry provides handler lookup functions
type HandlerRegistry interface {
	FindUnitHandlers(unitID int, state string) []*UnitChangedHandler
	FindPeerHandlers(online bool) []*PeerChangedHandler
	FindConnectionHandlers(state string) []*ConnectionHandler
}

// RegisterHandlers subscribes to push events on the event bus and
// dispatches them to the Lua handlers through the single Lua worker.
func RegisterHandlers(
	ctx context.Context,
	registry HandlerRegistry,
	bus *eventbus.Bus,
	luaExec exec.Executor,
) {
	registerUnitHandler(ctx, registry, bus, luaExec)
	registerPeerHandler(ctx, registry, bus, luaExec)
	registerConnectionHandler(ctx, registry, bus, luaExec)
}

// registerUnitHandler sets up unit change event handling via the event bus.
func registerUnitHandler(
	ctx context.Context,
	registry HandlerRegistry,
	bus *eventbus.Bus,
	luaExec exec.Executor,
) {
	// Map from handler pointer to collector (each handler gets its own collector)
	collectors := make(map[*UnitChangedHandler]middleware.Collector)
	var mu sync.Mutex

	bus.Subscribe(eventbus.EventTypeUnitChanged, func(event eventbus.Event) {
		unitID, _ := event.Data["id"].(int)
		state, _ := event.Data["state"].(string)

		handlers := registry.FindUnitHandlers(unitID, state)
		if len(handlers) == 0 {
			return
		}

		log.Debug().
			Int("unit_id", unitID).
			Str("state", state).
			Int("handler_count", len(handlers)).
			Msg("Unit event matched handlers")

		for _, handler := range handlers {
			mu.Lock()
			collector, ok := collectors[handler]
			if !ok {
				collector = createUnitCollector(ctx, handler, luaExec)
				collectors[handler] = collector
			}
			mu.Unlock()

			collector.Add(copyEventData(event.Data))
		}
	})
}

// createUnitCollector creates a collector for unit change events
func createUnitCollector(
	ctx context.Context,
	handler *UnitChangedHandler,
	luaExec exec.Executor,
) middleware.Collector {
	sink := func(events []map[string]any) {
		luaExec.Do(ctx, func(workCtx context.Context) {
			var args map[string]any

			if handler.Collect != nil && handler.Collect.Reducer != nil {
				// Safe to call LState() here - we're inside Do() callback on Lua worker
				args = exec.CallReducer(luaExec.LState(), handler.Collect.Reducer, events)
			} else if len(events) > 0 {
				args = events[len(events)-1]
			} else {
				args = make(map[string]any)
			}

			exec.CallHandler(luaExec.LState(), handler.Fn, args)
		})
	}

	if handler.Collect != nil {
		return handler.Collect.Build(sink)
	}
	return middleware.NewImmediate(sink)
}

// registerPeerHandler sets up gateway transition handling via the event bus.
func registerPeerHandler(
	ctx context.Context,
	registry HandlerRegistry,
	bus *eventbus.Bus,
	luaExec exec.Executor,
) {
	bus.Subscribe(eventbus.EventTypePeerChanged, func(event eventbus.Event) {
		online, _ := event.Data["online"].(bool)

		handlers := registry.FindPeerHandlers(online)
		if len(handlers) == 0 {
			return
		}

		log.Debug().
			Bool("online", online).
			Int("handler_count", len(handlers)).
			Msg("Peer event matched handlers")

		for _, handler := range handlers {
			fn := handler.Fn
			luaExec.Do(ctx, func(workCtx context.Context) {
				exec.CallHandler(luaExec.LState(), fn, copyEventData(event.Data))
			})
		}
	})
}

// registerConnectionHandler sets up wire state handling via the event bus.
func registerConnectionHandler(
	ctx context.Context,
	registry HandlerRegistry,
	bus *eventbus.Bus,
	luaExec exec.Executor,
) {
	bus.Subscribe(eventbus.EventTypeConnectionState, func(event eventbus.Event) {
		state, _ := event.Data["state"].(string)

		handlers := registry.FindConnectionHandlers(state)
		if len(handlers) == 0 {
			return
		}

		for _, handler := range handlers {
			fn := handler.Fn
			luaExec.Do(ctx, func(workCtx context.Context) {
				exec.CallHandler(luaExec.LState(), fn, copyEventData(event.Data))
			})
		}
	})
}

// copyEventData creates a copy of event data map
func copyEventData(data map[string]interface{}) map[string]any {
	result := make(map[string]any, len(data))
	for k, v := range data {
		result[k] = v
	}
	return result
}
