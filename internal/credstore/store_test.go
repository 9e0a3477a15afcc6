// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/backoffice-tui/internal/identity"
)

var cashier = identity.UserRecord{ID: "7", Email: "cashier@x.io", Username: "cal", Role: "cashier", Active: true}

// backends returns a fresh instance of every backend.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqliteStore, err := OpenSQLite(filepath.Join(dir, "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		BackendSQLite: sqliteStore,
		BackendFile:   NewFileStore(filepath.Join(dir, "credentials.json")),
		BackendMemory: NewMemoryStore(),
	}
}

// =============================================================================
// SHARED BEHAVIOUR
// =============================================================================

func TestStore_EmptyLoadsNil(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := s.Load()
			require.NoError(t, err)
			require.Nil(t, rec)
		})
	}
}

func TestStore_SaveLoadClear(t *testing.T) {
	loginTime := time.UnixMilli(1_700_000_000_123)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(Record{Token: "tok", User: cashier, LoginTime: loginTime}))

			rec, err := s.Load()
			require.NoError(t, err)
			require.NotNil(t, rec)
			require.Equal(t, "tok", rec.Token)
			require.Equal(t, cashier, rec.User)
			require.True(t, rec.LoginTime.Equal(loginTime))

			require.NoError(t, s.Clear())
			rec, err = s.Load()
			require.NoError(t, err)
			require.Nil(t, rec)

			// Clearing twice is fine
			require.NoError(t, s.Clear())
		})
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(Record{Token: "first", User: cashier, LoginTime: time.UnixMilli(1000)}))
			admin := identity.UserRecord{ID: "1", Email: "admin@x.io", Role: "admin", Active: true}
			require.NoError(t, s.Save(Record{Token: "second", User: admin, LoginTime: time.UnixMilli(2000)}))

			rec, err := s.Load()
			require.NoError(t, err)
			require.Equal(t, "second", rec.Token)
			require.Equal(t, "admin", rec.User.Role)
			require.Equal(t, int64(2000), rec.LoginTime.UnixMilli())
		})
	}
}

func TestStore_RejectsIncompleteRecord(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, s.Save(Record{User: cashier}), ErrIncomplete)
			require.ErrorIs(t, s.Save(Record{Token: "tok"}), ErrIncomplete)

			rec, err := s.Load()
			require.NoError(t, err)
			require.Nil(t, rec)
		})
	}
}

// =============================================================================
// PARTIAL RECORDS
// =============================================================================

func TestMemoryStore_PartialRecordIsCleared(t *testing.T) {
	s := NewMemoryStore()
	s.SetRaw(KeyToken, "orphan")

	rec, err := s.Load()
	require.ErrorIs(t, err, ErrCorrupt)
	require.Nil(t, rec)
	require.Equal(t, 0, s.Keys())

	rec, err = s.Load()
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestMemoryStore_MissingLoginTimeIsZero(t *testing.T) {
	s := NewMemoryStore()
	s.SetRaw(KeyToken, "tok")
	s.SetRaw(KeyUser, `{"email":"a@x.io","role":"admin"}`)

	rec, err := s.Load()
	require.NoError(t, err)
	require.True(t, rec.LoginTime.IsZero())
}

func TestSQLiteStore_PartialRecordIsCleared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.db.Exec("INSERT INTO credentials (key, value) VALUES (?, ?)", KeyUser, `{"email":"a@x.io"}`)
	require.NoError(t, err)

	rec, err := s.Load()
	require.ErrorIs(t, err, ErrCorrupt)
	require.Nil(t, rec)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM credentials").Scan(&n))
	require.Zero(t, n)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(Record{Token: "tok", User: cashier, LoginTime: time.UnixMilli(5000)}))
	require.NoError(t, s.Close())

	_, err = s.Load()
	require.ErrorIs(t, err, ErrClosed)

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Load()
	require.NoError(t, err)
	require.Equal(t, "tok", rec.Token)

	// Independent reader sees exactly three keys
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM credentials").Scan(&n))
	require.Equal(t, 3, n)
}

func TestFileStore_GarbageIsCleared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s := NewFileStore(path)
	rec, err := s.Load()
	require.ErrorIs(t, err, ErrCorrupt)
	require.Nil(t, rec)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestFileStore_PartialDocumentIsCleared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token":"tok","login_time":1}`), 0600))

	rec, err := NewFileStore(path).Load()
	require.ErrorIs(t, err, ErrCorrupt)
	require.Nil(t, rec)
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestFileStore_Permissions(t *testing.T) {
	if os.PathSeparator != '/' {
		t.Skip("POSIX permissions only")
	}
	path := filepath.Join(t.TempDir(), "sub", "credentials.json")
	require.NoError(t, NewFileStore(path).Save(Record{Token: "tok", User: cashier, LoginTime: time.Now()}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("redis", "")
	require.Error(t, err)

	s, err := Open(BackendMemory, "")
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)
}
