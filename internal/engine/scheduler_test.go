package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_FiresOnTimeout(t *testing.T) {
	t.Parallel()

	fired := make(chan string, 1)
	s := NewScheduler(func(id string) { fired <- id })

	s.Arm("a-1", 10*time.Millisecond)

	select {
	case id := <-fired:
		if id != "a-1" {
			t.Errorf("fired id = %q, want a-1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}

	if s.Armed("a-1") {
		t.Error("handle retained after fire")
	}
}

func TestScheduler_DisarmCancels(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	s := NewScheduler(func(string) { fired.Add(1) })

	s.Arm("a-1", 50*time.Millisecond)
	if !s.Disarm("a-1") {
		t.Fatal("Disarm returned false for an armed timer")
	}

	time.Sleep(150 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("fired %d times after disarm, want 0", n)
	}
}

func TestScheduler_DisarmIdempotent(t *testing.T) {
	t.Parallel()

	fired := make(chan struct{}, 1)
	s := NewScheduler(func(string) { fired <- struct{}{} })

	s.Arm("a-1", 5*time.Millisecond)
	<-fired

	// Disarm after fire and disarm of an unknown id are clean no-ops.
	if s.Disarm("a-1") {
		t.Error("Disarm after fire reported a live cancel")
	}
	if s.Disarm("never-armed") {
		t.Error("Disarm of unknown id reported a live cancel")
	}
}

func TestScheduler_RearmReplacesTimer(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	s := NewScheduler(func(string) { fired.Add(1) })

	s.Arm("a-1", 20*time.Millisecond)
	s.Arm("a-1", 20*time.Millisecond)
	if got := s.Active(); got != 1 {
		t.Fatalf("Active = %d, want 1 after re-arm", got)
	}

	time.Sleep(200 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("fired %d times, want exactly 1", n)
	}
}

func TestScheduler_Shutdown(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	s := NewScheduler(func(string) { fired.Add(1) })

	for _, id := range []string{"a-1", "a-2", "a-3"} {
		s.Arm(id, 50*time.Millisecond)
	}
	s.Shutdown()

	if got := s.Active(); got != 0 {
		t.Errorf("Active = %d after shutdown, want 0", got)
	}
	time.Sleep(150 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("fired %d times after shutdown, want 0", n)
	}
}

func TestScheduler_ConcurrentArmDisarm(t *testing.T) {
	t.Parallel()

	s := NewScheduler(func(string) {})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Arm("a-1", time.Millisecond)
			s.Disarm("a-1")
		}()
	}
	wg.Wait()

	s.Shutdown()
	if got := s.Active(); got != 0 {
		t.Errorf("Active = %d after shutdown, want 0", got)
	}
}
