package engine

import (
	"sync"
	"time"
)

// Scheduler owns the response-timeout race per alert. Each armed alert holds
// exactly one cancellable timer handle, retained until disarm or fire. The
// fire callback runs on the timer goroutine; it must re-check alert state
// itself, because cancellation and expiry can race.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer // alert ID -> armed timer
	fire   func(alertID string)
}

// NewScheduler creates a scheduler that invokes fire when an armed timeout
// expires without being disarmed.
func NewScheduler(fire func(alertID string)) *Scheduler {
	return &Scheduler{
		timers: make(map[string]*time.Timer),
		fire:   fire,
	}
}

// Arm starts the response timeout for an alert. Arming an already-armed alert
// replaces its timer, preserving the one-active-timer invariant.
func (s *Scheduler) Arm(alertID string, timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[alertID]; ok {
		t.Stop()
	}
	s.timers[alertID] = time.AfterFunc(timeout, func() {
		// Drop the handle before firing so a Disarm racing the callback is a
		// clean no-op either way.
		s.mu.Lock()
		delete(s.timers, alertID)
		s.mu.Unlock()
		s.fire(alertID)
	})
}

// Disarm cancels the alert's timeout. Safe to call after the timer has fired
// or for an unknown alert; reports whether a live timer was cancelled.
func (s *Scheduler) Disarm(alertID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[alertID]
	if !ok {
		return false
	}
	delete(s.timers, alertID)
	return t.Stop()
}

// Armed reports whether the alert currently has a timer.
func (s *Scheduler) Armed(alertID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[alertID]
	return ok
}

// Active returns the number of armed timers.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Shutdown cancels every armed timer. Fire callbacks already in flight may
// still complete.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
