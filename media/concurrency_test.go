package media

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSlotsLimit(t *testing.T) {
	s := newSlots(2, quietLogger())
	if got := s.capacity(); got != 2 {
		t.Fatalf("capacity = %d, want 2", got)
	}

	ctx := context.Background()
	if !s.acquire(ctx) || !s.acquire(ctx) {
		t.Fatal("failed to acquire the first two slots")
	}
	if got := s.active(); got != 2 {
		t.Fatalf("active = %d, want 2", got)
	}

	ctx2, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if s.acquire(ctx2) {
		t.Fatal("should not have acquired a third slot")
	}

	s.release()
	if got := s.active(); got != 1 {
		t.Fatalf("active after release = %d, want 1", got)
	}
	if !s.acquire(ctx) {
		t.Fatal("failed to acquire slot after release")
	}
	s.release()
	s.release()
}

func TestSlotsDefaultsToOne(t *testing.T) {
	if got := newSlots(0, quietLogger()).capacity(); got != 1 {
		t.Fatalf("capacity = %d, want 1", got)
	}
}

func TestSlotsReleaseWithoutAcquire(t *testing.T) {
	s := newSlots(1, quietLogger())
	s.release() // must not block or panic
	if got := s.active(); got != 0 {
		t.Fatalf("active = %d, want 0", got)
	}
}

func TestSlotsConcurrentCeiling(t *testing.T) {
	s := newSlots(3, quietLogger())
	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !s.acquire(context.Background()) {
				return
			}
			defer s.release()
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()
	if p := peak.Load(); p > 3 {
		t.Fatalf("peak concurrency = %d, want <= 3", p)
	}
}
