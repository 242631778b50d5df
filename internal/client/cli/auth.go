package cli

import (
	"context"

	"github.com/dmitrijs2005/fitsync/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) readCredentials() (string, string, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", "", err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", "", err
	}
	defer common.WipeByteArray(password)
	return email, string(password), nil
}

// Register prompts for an email and password and creates the account.
func (a *App) Register(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	if err := a.auth.Register(ctx, email, password); err != nil {
		return err
	}
	a.printf("Account created. Type 'login' to sign in.\n")
	return nil
}

// Login prompts for credentials and signs in. The server must be reachable;
// a saved session is resumed at startup without it.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	email, err = a.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.cursor = ""
	a.printf("Signed in as %s\n", email)
	return nil
}

// Logout pushes what it can and clears every local trace of the account.
func (a *App) Logout(ctx context.Context) error {
	dropped, err := a.auth.SignOut(ctx)
	if err != nil {
		return err
	}
	a.cursor = ""
	if dropped > 0 {
		a.printf("Signed out. %d unsent change(s) were discarded.\n", dropped)
		return nil
	}
	a.printf("Signed out.\n")
	return nil
}
