// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeranaias/backoffice-tui/internal/access"
	"github.com/jeranaias/backoffice-tui/internal/identity"
)

var (
	// ErrNotFound is returned for an unknown account.
	ErrNotFound = errors.New("account not found")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrBadPassword is returned by Authenticate on a password mismatch.
	ErrBadPassword = errors.New("invalid email or password")
	// ErrInactive is returned by Authenticate for a disabled account.
	ErrInactive = errors.New("account is inactive")
	// ErrMissingFields is returned by Create when a field is blank.
	ErrMissingFields = errors.New("all fields are required")
)

// Account is a stored staff account.
type Account struct {
	User identity.UserRecord
	hash []byte
}

// SeedAccount is one entry of a seed file.
type SeedAccount struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	// Status defaults to active when omitted
	Status *bool `json:"status,omitempty"`
}

// Directory is an in-memory account repository keyed by lowercased email.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	cost     int
}

// NewDirectory creates an empty directory hashing with the given bcrypt
// cost; 0 means bcrypt.DefaultCost.
func NewDirectory(cost int) *Directory {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Directory{accounts: make(map[string]*Account), cost: cost}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create adds an account.
func (d *Directory) Create(form identity.RegisterForm) (identity.UserRecord, error) {
	email := strings.TrimSpace(form.Email)
	if email == "" || strings.TrimSpace(form.Username) == "" || form.Password == "" {
		return identity.UserRecord{}, ErrMissingFields
	}
	role, err := access.ParseRole(form.Role)
	if err != nil {
		return identity.UserRecord{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), d.cost)
	if err != nil {
		return identity.UserRecord{}, fmt.Errorf("failed to hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	key := emailKey(email)
	if _, exists := d.accounts[key]; exists {
		return identity.UserRecord{}, ErrEmailTaken
	}
	user := identity.UserRecord{
		ID:       uuid.NewString(),
		Email:    email,
		Username: strings.TrimSpace(form.Username),
		Role:     string(role),
		Active:   form.Active,
	}
	d.accounts[key] = &Account{User: user, hash: hash}
	return user, nil
}

// Authenticate checks a password and returns the account's user.
func (d *Directory) Authenticate(email, password string) (identity.UserRecord, error) {
	d.mu.RLock()
	acct, ok := d.accounts[emailKey(email)]
	d.mu.RUnlock()
	if !ok {
		// Same error as a bad password so emails cannot be probed
		return identity.UserRecord{}, ErrBadPassword
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return identity.UserRecord{}, ErrBadPassword
	}
	if !acct.User.Active {
		return identity.UserRecord{}, ErrInactive
	}
	return acct.User, nil
}

// Get returns the account with the given ID.
func (d *Directory) Get(id string) (identity.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.accounts {
		if a.User.ID == id {
			return a.User, nil
		}
	}
	return identity.UserRecord{}, ErrNotFound
}

// List returns all accounts sorted by email.
func (d *Directory) List() []identity.UserRecord {
	d.mu.RLock()
	out := make([]identity.UserRecord, 0, len(d.accounts))
	for _, a := range d.accounts {
		out = append(out, a.User)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// Len returns the number of accounts.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.accounts)
}

// LoadSeed reads a JSON array of SeedAccount and creates each one.
// Accounts whose email already exists are skipped.
func (d *Directory) LoadSeed(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seeds []SeedAccount
	if err := json.Unmarshal(data, &seeds); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}

	n := 0
	for i, s := range seeds {
		active := true
		if s.Status != nil {
			active = *s.Status
		}
		_, err := d.Create(identity.RegisterForm{
			Email: s.Email, Username: s.Username, Password: s.Password, Role: s.Role, Active: active,
		})
		if errors.Is(err, ErrEmailTaken) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("seed entry %d (%s): %w", i, s.Email, err)
		}
		n++
	}
	return n, nil
}
