// Package middleware batches bursts of push events before they reach
// the Lua handlers. The Casambi cloud fans a single physical change out
// into several unitChanged frames; a collector decides when the
// accumulated batch is handed on.
package middleware

// Sink receives a finished batch of events.
type Sink func(batch []map[string]any)

// Collector groups incoming events into batches. Add is safe for
// concurrent use; Stop releases any pending timer without flushing.
type Collector interface {
	Add(event map[string]any)
	Stop()
}

// Immediate hands every event on as a batch of one.
type Immediate struct {
	sink Sink
}

// NewImmediate creates a pass-through collector.
func NewImmediate(sink Sink) *Immediate {
	return &Immediate{sink: sink}
}

// Add flushes the event right away.
func (c *Immediate) Add(event map[string]any) {
	c.sink([]map[string]any{event})
}

// Stop is a no-op, nothing is ever pending.
func (c *Immediate) Stop() {}
