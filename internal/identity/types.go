// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// USER RECORD
// =============================================================================

// UserRecord is a staff member as returned by the identity service.
type UserRecord struct {
	ID       string
	Email    string
	Username string
	// Role is one of admin, cashier, user. Unknown values are kept verbatim
	// and denied everything by the access policy.
	Role   string
	Active bool
}

// wireUser is the canonical JSON shape written by MarshalJSON.
type wireUser struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   bool   `json:"status"`
}

// looseUser accepts the shapes the service has been seen to emit.
type looseUser struct {
	ID       json.RawMessage `json:"id"`
	MongoID  json.RawMessage `json:"_id"`
	Email    string          `json:"email"`
	Username string          `json:"username"`
	Role     string          `json:"role"`
	Status   json.RawMessage `json:"status"`
}

// MarshalJSON writes the canonical form with a boolean status.
func (u UserRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireUser{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
		Status:   u.Active,
	})
}

// UnmarshalJSON reads the id from "id" or "_id" and the status from a
// boolean or the strings "active"/"inactive". A missing status is active.
func (u *UserRecord) UnmarshalJSON(data []byte) error {
	var raw looseUser
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := rawID(raw.ID)
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	if id == "" {
		if id, err = rawID(raw.MongoID); err != nil {
			return fmt.Errorf("user _id: %w", err)
		}
	}

	active, err := rawStatus(raw.Status)
	if err != nil {
		return err
	}

	*u = UserRecord{
		ID:       id,
		Email:    strings.TrimSpace(raw.Email),
		Username: strings.TrimSpace(raw.Username),
		Role:     strings.ToLower(strings.TrimSpace(raw.Role)),
		Active:   active,
	}
	return nil
}

// rawID accepts a string, a number, or an {"$oid": "..."} object.
func rawID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{':
		var oid struct {
			OID string `json:"$oid"`
		}
		if err := json.Unmarshal(raw, &oid); err != nil {
			return "", err
		}
		return oid.OID, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

func rawStatus(raw json.RawMessage) (bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return true, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "active", "true":
			return true, nil
		case "inactive", "false":
			return false, nil
		default:
			return false, fmt.Errorf("unknown user status %q", s)
		}
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, fmt.Errorf("user status: %w", err)
	}
	return b, nil
}

// StatusLabel returns "Active" or "Inactive".
func (u UserRecord) StatusLabel() string {
	if u.Active {
		return "Active"
	}
	return "Inactive"
}

// =============================================================================
// REQUESTS AND RESPONSES
// =============================================================================

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the login response body.
type LoginResponse struct {
	Token string     `json:"token"`
	User  UserRecord `json:"user"`
}

// RegisterForm is the staff registration request body.
type RegisterForm struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Active   bool   `json:"status"`
}

// RegisterResponse is the decoded register response. Data holds the whole
// response document so callers can show whatever the service returned.
type RegisterResponse struct {
	Success bool
	Message string
	Data    map[string]interface{}
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
