// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/jeranaias/backoffice-tui/internal/util"
)

// fileDoc is the on-disk JSON document.
type fileDoc struct {
	Token     string          `json:"token,omitempty"`
	User      json.RawMessage `json:"user,omitempty"`
	LoginTime int64           `json:"login_time,omitempty"`
}

// FileStore keeps the record in one JSON file replaced atomically on save.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file path.
func (s *FileStore) Path() string {
	return s.path
}

// Save replaces the stored record.
func (s *FileStore) Save(rec Record) error {
	values, err := encode(rec)
	if err != nil {
		return err
	}
	ms, _ := strconv.ParseInt(values[KeyLoginTime], 10, 64)
	data, err := json.MarshalIndent(fileDoc{
		Token:     values[KeyToken],
		User:      json.RawMessage(values[KeyUser]),
		LoginTime: ms,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := util.WritePrivateFile(s.path, data); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Load returns the stored record. A missing file is no session; an
// unreadable or partial document is removed and reported as ErrCorrupt.
func (s *FileStore) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		if clearErr := s.clearLocked(); clearErr != nil {
			return nil, fmt.Errorf("%w (clear failed: %v)", ErrCorrupt, clearErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	values := map[string]string{}
	if doc.Token != "" {
		values[KeyToken] = doc.Token
	}
	if len(doc.User) > 0 && string(doc.User) != "null" {
		values[KeyUser] = string(doc.User)
	}
	if doc.LoginTime > 0 {
		values[KeyLoginTime] = strconv.FormatInt(doc.LoginTime, 10)
	}

	rec, err := decode(values)
	if errors.Is(err, ErrCorrupt) {
		if clearErr := s.clearLocked(); clearErr != nil {
			return nil, fmt.Errorf("%w (clear failed: %v)", err, clearErr)
		}
	}
	return rec, err
}

// Clear deletes the file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *FileStore) clearLocked() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
