package shutdown

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLatchWakesWaiter(t *testing.T) {
	l := New()
	done := make(chan error, 1)
	go func() { done <- l.Wait() }()

	select {
	case <-done:
		t.Fatalf("Wait returned before Signal")
	case <-time.After(20 * time.Millisecond):
	}

	if !l.Signal(nil) {
		t.Fatalf("first Signal should trip the latch")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("orderly stop should have nil cause, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Wait did not return after Signal")
	}
}

func TestLatchIsOneShot(t *testing.T) {
	l := New()
	first := errors.New("first")
	if !l.Signal(first) {
		t.Fatalf("first Signal should trip")
	}
	if l.Signal(errors.New("second")) {
		t.Fatalf("second Signal must be a no-op")
	}
	if l.Signal(nil) {
		t.Fatalf("third Signal must be a no-op")
	}
	if !l.Tripped() {
		t.Fatalf("latch should stay tripped")
	}

	// Repeated waits return immediately with the first cause.
	for range 3 {
		if err := l.Wait(); !errors.Is(err, first) {
			t.Fatalf("expected first cause, got %v", err)
		}
	}
}

func TestLatchReleasesAllWaiters(t *testing.T) {
	l := New()
	const waiters = 8

	var wg sync.WaitGroup
	wg.Add(waiters)
	for range waiters {
		go func() {
			defer wg.Done()
			_ = l.Wait()
		}()
	}

	go l.Signal(nil)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("not every waiter was released")
	}
}

func TestLatchConcurrentSignalsTripOnce(t *testing.T) {
	l := New()
	const signalers = 16

	var wg sync.WaitGroup
	var mu sync.Mutex
	trips := 0
	wg.Add(signalers)
	for range signalers {
		go func() {
			defer wg.Done()
			if l.Signal(nil) {
				mu.Lock()
				trips++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if trips != 1 {
		t.Fatalf("expected exactly one tripping Signal, got %d", trips)
	}
}

func TestLatchInitiallyOpen(t *testing.T) {
	if New().Tripped() {
		t.Fatalf("new latch must not be tripped")
	}
}
