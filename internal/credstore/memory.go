// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

import (
	"errors"
	"sync"
)

// MemoryStore keeps the record in process memory. Used by tests and
// --ephemeral runs.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	saves  int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

// Save replaces the stored record.
func (s *MemoryStore) Save(rec Record) error {
	values, err := encode(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = values
	s.saves++
	return nil
}

// Load returns the stored record.
func (s *MemoryStore) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := decode(s.values)
	if errors.Is(err, ErrCorrupt) {
		s.values = map[string]string{}
	}
	return rec, err
}

// Clear removes the record.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = map[string]string{}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// SetRaw writes a single key, bypassing the paired-write rule.
func (s *MemoryStore) SetRaw(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Keys returns how many keys are currently stored.
func (s *MemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Saves returns how many successful saves have happened.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
