package middleware

import (
	"sync"
	"testing"
	"time"
)

// sinkRecorder collects flushed batches for assertions
type sinkRecorder struct {
	mu      sync.Mutex
	batches [][]map[string]any
}

func (r *sinkRecorder) sink(batch []map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
}

func (r *sinkRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *sinkRecorder) batch(i int) []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[i]
}

func ev(n int) map[string]any {
	return map[string]any{"n": n}
}

func TestImmediate(t *testing.T) {
	rec := &sinkRecorder{}
	c := NewImmediate(rec.sink)
	defer c.Stop()

	c.Add(ev(1))
	c.Add(ev(2))

	if rec.count() != 2 {
		t.Fatalf("flushes = %d, want 2", rec.count())
	}
	if len(rec.batch(0)) != 1 {
		t.Errorf("batch size = %d, want 1", len(rec.batch(0)))
	}
}

func TestCount(t *testing.T) {
	rec := &sinkRecorder{}
	c := NewCount(3, rec.sink)
	defer c.Stop()

	c.Add(ev(1))
	c.Add(ev(2))
	if rec.count() != 0 {
		t.Fatalf("flushed before reaching target")
	}

	c.Add(ev(3))
	if rec.count() != 1 {
		t.Fatalf("flushes = %d, want 1", rec.count())
	}
	if len(rec.batch(0)) != 3 {
		t.Errorf("batch size = %d, want 3", len(rec.batch(0)))
	}
}

func TestQuiet(t *testing.T) {
	rec := &sinkRecorder{}
	c := NewQuiet(30*time.Millisecond, rec.sink)
	defer c.Stop()

	// Events within the window accumulate into one batch
	c.Add(ev(1))
	time.Sleep(10 * time.Millisecond)
	c.Add(ev(2))

	if rec.count() != 0 {
		t.Fatalf("flushed before the silence window elapsed")
	}

	time.Sleep(80 * time.Millisecond)
	if rec.count() != 1 {
		t.Fatalf("flushes = %d, want 1", rec.count())
	}
	if len(rec.batch(0)) != 2 {
		t.Errorf("batch size = %d, want 2", len(rec.batch(0)))
	}
}

func TestInterval(t *testing.T) {
	rec := &sinkRecorder{}
	c := NewInterval(30*time.Millisecond, rec.sink)
	defer c.Stop()

	c.Add(ev(1))
	c.Add(ev(2))

	if rec.count() != 0 {
		t.Fatalf("flushed before the period elapsed")
	}

	time.Sleep(80 * time.Millisecond)
	if rec.count() != 1 {
		t.Fatalf("flushes = %d, want 1", rec.count())
	}
	if len(rec.batch(0)) != 2 {
		t.Errorf("batch size = %d, want 2", len(rec.batch(0)))
	}
}

func TestQuietStopCancelsPendingFlush(t *testing.T) {
	rec := &sinkRecorder{}
	c := NewQuiet(20*time.Millisecond, rec.sink)

	c.Add(ev(1))
	c.Stop()

	time.Sleep(60 * time.Millisecond)
	if rec.count() != 0 {
		t.Errorf("flushes = %d after Stop, want 0", rec.count())
	}
}
