package middleware

import (
	"sync"
	"time"
)

// Count flushes once a fixed number of events has accumulated.
type Count struct {
	mu     sync.Mutex
	batch  []map[string]any
	target int
	sink   Sink
}

// NewCount creates a collector that flushes every target events.
func NewCount(target int, sink Sink) *Count {
	return &Count{target: target, sink: sink}
}

// Add appends the event and flushes when the target is reached.
func (c *Count) Add(event map[string]any) {
	c.mu.Lock()
	c.batch = append(c.batch, event)
	var done []map[string]any
	if len(c.batch) >= c.target {
		done, c.batch = c.batch, nil
	}
	c.mu.Unlock()

	if done != nil {
		c.sink(done)
	}
}

// Stop discards nothing; a partial batch stays until the next flush.
func (c *Count) Stop() {}

// Quiet flushes once no new event has arrived for a window. Every Add
// pushes the deadline out again, so a burst lands in one batch.
type Quiet struct {
	mu     sync.Mutex
	batch  []map[string]any
	window time.Duration
	timer  *time.Timer
	sink   Sink
}

// NewQuiet creates a collector that flushes after window of silence.
func NewQuiet(window time.Duration, sink Sink) *Quiet {
	return &Quiet{window: window, sink: sink}
}

// Add appends the event and rearms the silence timer.
func (c *Quiet) Add(event map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch = append(c.batch, event)
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.window, c.flush)
}

func (c *Quiet) flush() {
	c.mu.Lock()
	done := c.batch
	c.batch = nil
	c.mu.Unlock()

	if len(done) > 0 {
		c.sink(done)
	}
}

// Stop cancels the pending timer.
func (c *Quiet) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Interval flushes a fixed period after the first event of a cycle,
// regardless of how many more arrive in between.
type Interval struct {
	mu     sync.Mutex
	batch  []map[string]any
	period time.Duration
	timer  *time.Timer
	armed  bool
	sink   Sink
}

// NewInterval creates a collector that flushes every period.
func NewInterval(period time.Duration, sink Sink) *Interval {
	return &Interval{period: period, sink: sink}
}

// Add appends the event and arms the timer if this starts a cycle.
func (c *Interval) Add(event map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch = append(c.batch, event)
	if !c.armed {
		c.timer = time.AfterFunc(c.period, c.flush)
		c.armed = true
	}
}

func (c *Interval) flush() {
	c.mu.Lock()
	done := c.batch
	c.batch = nil
	c.armed = false
	c.mu.Unlock()

	if len(done) > 0 {
		c.sink(done)
	}
}

// Stop cancels the pending timer.
func (c *Interval) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
}
