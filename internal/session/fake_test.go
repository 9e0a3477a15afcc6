// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/jeranaias/backoffice-tui/internal/identity"
)

// fakeIdentity is an in-process identity service.
type fakeIdentity struct {
	mu       sync.Mutex
	accounts map[string]account

	// loginGate, when set, blocks Login until closed or ctx is done.
	loginGate    chan struct{}
	loginStarted chan struct{}
	ignoreCtx    bool

	listErr  error
	listFunc func(token string) ([]identity.UserRecord, error)

	registerResp *identity.RegisterResponse
	registerErr  error

	logins    int32
	registers int32
}

type account struct {
	password string
	token    string
	user     identity.UserRecord
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		accounts: map[string]account{
			"admin@x.io":   {password: "pw", token: "tok-admin", user: identity.UserRecord{ID: "1", Email: "admin@x.io", Username: "ada", Role: "admin", Active: true}},
			"cashier@x.io": {password: "pw", token: "tok-cashier", user: identity.UserRecord{ID: "2", Email: "cashier@x.io", Username: "cal", Role: "cashier", Active: true}},
			"user@x.io":    {password: "pw", token: "tok-user", user: identity.UserRecord{ID: "3", Email: "user@x.io", Username: "uma", Role: "user", Active: true}},
			"norole@x.io":  {password: "pw", token: "tok-norole", user: identity.UserRecord{ID: "4", Email: "norole@x.io", Username: "nik", Active: true}},
		},
		registerResp: &identity.RegisterResponse{Success: true, Data: map[string]interface{}{"success": true}},
	}
}

func (f *fakeIdentity) Login(ctx context.Context, email, password string) (*identity.LoginResponse, error) {
	atomic.AddInt32(&f.logins, 1)

	f.mu.Lock()
	gate, started := f.loginGate, f.loginStarted
	acct, ok := f.accounts[email]
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		if f.ignoreCtx {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, &identity.NetworkError{Op: "login", Err: ctx.Err()}
			}
		}
	}

	if !ok || acct.password != password {
		return nil, &identity.APIError{Op: "login", Status: http.StatusUnauthorized, Message: "Invalid email or password"}
	}
	return &identity.LoginResponse{Token: acct.token, User: acct.user}, nil
}

func (f *fakeIdentity) Register(ctx context.Context, form identity.RegisterForm) (*identity.RegisterResponse, error) {
	atomic.AddInt32(&f.registers, 1)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.registerResp, nil
}

func (f *fakeIdentity) ListAdmins(ctx context.Context, token string) ([]identity.UserRecord, error) {
	if f.listFunc != nil {
		return f.listFunc(token)
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []identity.UserRecord
	for _, a := range f.accounts {
		out = append(out, a.user)
	}
	return out, nil
}
