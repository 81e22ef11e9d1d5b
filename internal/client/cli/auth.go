package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/anonify/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username, email and password (twice) and creates
// the account. A successful registration also logs the user in.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	confirm, err := getPassword(a.reader, "Repeat password", a.out)
	if err != nil {
		common.WipeByteArray(password)
		return err
	}

	if err := a.auth.Register(ctx, userName, email, password, confirm); err != nil {
		a.printf("Registration unsuccessful: %s\n", describe(err))
		return err
	}

	a.loggedIn(userName)
	a.println("Success!")
	return nil
}

// Login prompts for credentials and authenticates. The last username used on
// this machine is offered as the default.
func (a *App) Login(ctx context.Context) error {
	prompt := "Enter username"
	last, err := a.auth.LastUsername(ctx)
	if err != nil {
		a.log.Warn(ctx, "read last username", "error", err)
	}
	if last != "" {
		prompt += " [" + last + "]"
	}

	userName, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}
	if userName == "" {
		userName = last
	}

	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}

	if err := a.auth.Login(ctx, userName, password); err != nil {
		a.printf("Login unsuccessful: %s\n", describe(err))
		return err
	}

	a.loggedIn(userName)
	a.println("Login successful")
	return nil
}

// Logout ends the session. The local credential is removed even when the
// server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	a.engine.Close()
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.userName = ""
	a.println("Logged out")
	return nil
}

// Forget logs out and wipes every local record: the remembered username and
// the index of archived results.
func (a *App) Forget(ctx context.Context) error {
	if err := a.Logout(ctx); err != nil {
		return err
	}
	if err := a.repos.Purge(ctx); err != nil {
		return err
	}
	a.println("Local data removed")
	return nil
}

// Profile prints the current account.
func (a *App) Profile(ctx context.Context) error {
	p, err := a.auth.Profile(ctx)
	if err != nil {
		a.printf("Profile unavailable: %s\n", describe(err))
		return err
	}
	a.userName = p.Username
	a.printf("id: %d\nusername: %s\nemail: %s\n", p.ID, p.Username, p.Email)
	return nil
}

// UpdateProfile prompts for a new username and password; blank answers keep
// the current value.
func (a *App) UpdateProfile(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "New username (blank to keep)", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "New password (blank to keep)", a.out)
	if err != nil {
		return err
	}
	var confirm []byte
	if len(password) > 0 {
		if confirm, err = getPassword(a.reader, "Repeat password", a.out); err != nil {
			common.WipeByteArray(password)
			return err
		}
	}

	if err := a.auth.UpdateProfile(ctx, userName, password, confirm); err != nil {
		a.printf("Update unsuccessful: %s\n", describe(err))
		return err
	}
	if userName != "" {
		a.userName = userName
	}
	a.println("Profile updated")
	return nil
}

func (a *App) loggedIn(userName string) {
	a.userName = userName
	a.sessionEnded.Store(false)
}

// describe turns an error into a short user-facing explanation.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return "not authorized"
	case errors.Is(err, common.ErrForbidden):
		return "access denied"
	case errors.Is(err, common.ErrNotFound):
		return "not found"
	case errors.Is(err, common.ErrUnavailable):
		return "server unavailable"
	default:
		return err.Error()
	}
}
