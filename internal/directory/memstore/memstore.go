// Package memstore provides an in-memory implementation of directory.Store.
// Suitable for dev/testing and for deployments without a database.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/linnemanlabs/pulsewatch/internal/directory"
)

// Store holds contacts and settings in memory.
type Store struct {
	mu       sync.RWMutex
	contacts map[string][]directory.EmergencyContact // subject ID -> contacts
	settings map[string]directory.Settings           // subject ID -> settings
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		contacts: make(map[string][]directory.EmergencyContact),
		settings: make(map[string]directory.Settings),
	}
}

// Contacts returns the subject's contacts in priority order. Returns copies.
func (s *Store) Contacts(_ context.Context, subjectID string) ([]directory.EmergencyContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.contacts[subjectID]
	out := make([]directory.EmergencyContact, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out, nil
}

// AddContact appends a contact to the subject's list.
func (s *Store) AddContact(_ context.Context, c directory.EmergencyContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.SubjectID] = append(s.contacts[c.SubjectID], c)
	return nil
}

// RemoveContact deletes the contact from the subject's list.
func (s *Store) RemoveContact(_ context.Context, subjectID, contactID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.contacts[subjectID]
	for i, c := range list {
		if c.ID == contactID {
			s.contacts[subjectID] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Settings returns the subject's preferences, defaulting when none exist.
func (s *Store) Settings(_ context.Context, subjectID string) (directory.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.settings[subjectID]; ok {
		return st, nil
	}
	return directory.DefaultSettings(subjectID), nil
}

// PutSettings stores the subject's preferences.
func (s *Store) PutSettings(_ context.Context, st directory.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[st.SubjectID] = st
	return nil
}
