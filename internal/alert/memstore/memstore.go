// Package memstore provides the in-memory implementation of alert.Store.
// Alert records are memory-resident for the process lifetime by design:
// escalation timers are process-local, so the registry lives and dies with
// the scheduler that guards it.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linnemanlabs/pulsewatch/internal/alert"
)

// Store holds alert records in memory.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]*alert.Alert // alert ID -> record
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		alerts: make(map[string]*alert.Alert),
	}
}

// Create adds a new alert. Fails with alert.ErrDuplicateID if the ID exists.
func (s *Store) Create(_ context.Context, al *alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.alerts[al.ID]; exists {
		return alert.ErrDuplicateID
	}
	cp := *al
	s.alerts[al.ID] = &cp
	return nil
}

// Get retrieves an alert by ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*alert.Alert, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	al, ok := s.alerts[id]
	if !ok {
		return nil, false, nil
	}
	cp := *al
	return &cp, true, nil
}

// Acknowledge marks the alert acknowledged if it exists and belongs to
// subjectID. Re-acknowledging succeeds without moving AcknowledgedAt.
func (s *Store) Acknowledge(_ context.Context, id, subjectID string, at time.Time) (*alert.Alert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	al, ok := s.alerts[id]
	if !ok || al.SubjectID != subjectID {
		return nil, false, nil
	}
	if !al.Acknowledged {
		al.Acknowledged = true
		al.AcknowledgedAt = at
	}
	cp := *al
	return &cp, true, nil
}

// Escalate marks the alert escalated only if it is still pending. The check
// and the write happen under one lock.
func (s *Store) Escalate(_ context.Context, id string, at time.Time) (*alert.Alert, bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	al, ok := s.alerts[id]
	if !ok {
		return nil, false, false, nil
	}
	if al.Acknowledged || al.Escalated {
		cp := *al
		return &cp, true, false, nil
	}
	al.Escalated = true
	al.EscalatedAt = at
	cp := *al
	return &cp, true, true, nil
}

// ListBySubject returns the subject's alerts, newest first. Returns copies.
func (s *Store) ListBySubject(_ context.Context, subjectID string) ([]*alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*alert.Alert
	for _, al := range s.alerts {
		if al.SubjectID != subjectID {
			continue
		}
		cp := *al
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Sweep removes alerts created before cutoff and returns their IDs.
func (s *Store) Sweep(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for id, al := range s.alerts {
		if al.CreatedAt.Before(cutoff) {
			delete(s.alerts, id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}
