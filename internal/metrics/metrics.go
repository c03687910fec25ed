// Package metrics holds the prometheus instrumentation for casambid.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests counts Casambi REST calls by response status code.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casambid_api_requests_total",
		Help: "Casambi Cloud REST requests by status code.",
	}, []string{"code"})

	// WSMessages counts incoming WebSocket frames by method.
	WSMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casambid_ws_messages_total",
		Help: "Incoming Casambi WebSocket messages by method.",
	}, []string{"method"})

	// Reconnects counts WebSocket reconnect attempts.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casambid_ws_reconnects_total",
		Help: "Casambi WebSocket reconnect attempts.",
	})

	// UnitsOnline tracks the number of units currently reported online.
	UnitsOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "casambid_units_online",
		Help: "Units currently reported online.",
	})

	// CommandsSent counts outgoing control commands by method.
	CommandsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casambid_commands_total",
		Help: "Outgoing control commands by wire method.",
	}, []string{"method"})
)
