// Package services contains application services for the Anonify client.
// This file defines the authentication service: login, registration, logout,
// profile management and the backend liveness check. The session credential
// itself is owned by session.Store; this service only feeds it.
package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/anonify/internal/client/api"
	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/anonify/internal/client/session"
	"github.com/dmitrijs2005/anonify/internal/common"
	"github.com/dmitrijs2005/anonify/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login/Register: authenticate against the server and store the credential.
//   - Logout: best-effort server call, local credential always cleared.
//   - Profile/UpdateProfile: read and change the current account.
//   - Ping: check server liveness.
//   - LastUsername: the user that last logged in on this machine.
//
// Password buffers are wiped before the methods return.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) error
	Register(ctx context.Context, username, email string, password, confirm []byte) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, username string, password, confirm []byte) error
	Ping(ctx context.Context) error
	LastUsername(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// AuthBackend is the part of api.Client the service calls.
type AuthBackend interface {
	Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error)
	Register(ctx context.Context, reg models.Registration) (*models.AuthResponse, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.AuthResponse, error)
	Ping(ctx context.Context) error
	Close() error
}

type authService struct {
	client AuthBackend
	store  *session.Store
	meta   metadata.Repository
	log    logging.Logger
}

// NewAuthService constructs an AuthService. meta may be nil, in which case
// the last username is not remembered.
func NewAuthService(client AuthBackend, store *session.Store, meta metadata.Repository, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &authService{client: client, store: store, meta: meta, log: log}
}

func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	defer common.WipeByteArray(password)

	username = strings.TrimSpace(username)
	if username == "" || len(password) == 0 {
		return fmt.Errorf("login: username and password are required: %w", common.ErrValidation)
	}

	resp, err := a.client.Login(ctx, models.Credentials{Username: username, Password: string(password)})
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	if err := a.acceptToken(ctx, resp); err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	a.rememberUsername(ctx, username)
	return nil
}

func (a *authService) Register(ctx context.Context, username, email string, password, confirm []byte) error {
	defer common.WipeByteArray(password)
	defer common.WipeByteArray(confirm)

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || len(password) == 0 {
		return fmt.Errorf("register: username, email and password are required: %w", common.ErrValidation)
	}
	if subtle.ConstantTimeCompare(password, confirm) == 0 {
		return fmt.Errorf("register: passwords do not match: %w", common.ErrValidation)
	}

	resp, err := a.client.Register(ctx, models.Registration{Username: username, Email: email, Password: string(password)})
	if err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	if err := a.acceptToken(ctx, resp); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	a.rememberUsername(ctx, username)
	return nil
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		a.log.Warn(ctx, "server logout failed", "error", err)
	}
	if _, err := a.store.Clear(ctx, session.ReasonLogout); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (a *authService) Profile(ctx context.Context) (*models.Profile, error) {
	p, err := a.client.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return p, nil
}

// UpdateProfile changes the username and/or password. Empty values are left
// unchanged; an update with nothing to change does not call the server. The
// server issues a new credential, which replaces the stored one.
func (a *authService) UpdateProfile(ctx context.Context, username string, password, confirm []byte) error {
	defer common.WipeByteArray(password)
	defer common.WipeByteArray(confirm)

	upd := models.ProfileUpdate{Username: strings.TrimSpace(username), Password: string(password)}
	if upd.IsEmpty() {
		return nil
	}
	if len(password) > 0 && subtle.ConstantTimeCompare(password, confirm) == 0 {
		return fmt.Errorf("update profile: passwords do not match: %w", common.ErrValidation)
	}

	resp, err := a.client.UpdateProfile(ctx, upd)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if resp.Token != "" {
		if err := a.store.Set(ctx, resp.Token); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
	}
	if upd.Username != "" {
		a.rememberUsername(ctx, upd.Username)
	}
	return nil
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) LastUsername(ctx context.Context) (string, error) {
	if a.meta == nil {
		return "", nil
	}
	name, _, err := a.meta.Get(ctx, common.UsernameSlot)
	return name, err
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

func (a *authService) acceptToken(ctx context.Context, resp *models.AuthResponse) error {
	if resp == nil || strings.TrimSpace(resp.Token) == "" {
		return fmt.Errorf("no token in response: %w", api.ErrMalformedResponse)
	}
	return a.store.Set(ctx, resp.Token)
}

func (a *authService) rememberUsername(ctx context.Context, username string) {
	if a.meta == nil {
		return
	}
	if err := a.meta.Set(ctx, common.UsernameSlot, username); err != nil {
		a.log.Warn(ctx, "remember username", "error", err)
	}
}
