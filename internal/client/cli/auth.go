package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/volunteerhub/internal/client/client"
	"github.com/dmitrijs2005/volunteerhub/internal/common"
)

// Prompt indirections, replaced in tests.
var (
	prompt         = Prompt
	promptPassword = PromptPassword
)

// Register prompts for the account fields and creates the account. The user
// type is asked for explicitly and cannot be changed later.
func (a *App) Register(ctx context.Context) error {
	email, err := prompt(a.reader, a.out, "Email")
	if err != nil {
		return err
	}
	name, err := prompt(a.reader, a.out, "Name")
	if err != nil {
		return err
	}
	userType, err := prompt(a.reader, a.out, "User type (volunteer/ngo)")
	if err != nil {
		return err
	}

	password, err := promptPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, email, password, name, strings.ToLower(userType)); err != nil {
		fmt.Fprintf(a.out, "Registration failed: %v\n", err)
		return err
	}

	fmt.Fprintln(a.out, "Success! You can now log in.")
	return nil
}

// Login prompts for credentials and stores the issued token.
func (a *App) Login(ctx context.Context) error {
	email, err := prompt(a.reader, a.out, "Email")
	if err != nil {
		return err
	}

	password, err := promptPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.authService.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ModeOffline)
		}
		fmt.Fprintf(a.out, "Login unsuccessful: %v\n", err)
		return err
	}

	a.session = s
	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Login successful (%s)\n", s.UserType)
	return nil
}

// Logout revokes the current token. The local session survives only when
// the server could not be reached.
func (a *App) Logout(ctx context.Context) error {
	err := a.authService.Logout(ctx)
	if errors.Is(err, client.ErrUnavailable) {
		fmt.Fprintf(a.out, "Logout failed, server unavailable: %v\n", err)
		return err
	}

	a.session = nil
	if err != nil && !errors.Is(err, client.ErrUnauthorized) {
		fmt.Fprintf(a.out, "Logout failed: %v\n", err)
		return err
	}
	fmt.Fprintln(a.out, "Logout successful")
	return nil
}

// WhoAmI prints what the server decodes from the current token.
func (a *App) WhoAmI(ctx context.Context) error {
	id, err := a.authService.WhoAmI(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.session = nil
			fmt.Fprintln(a.out, "Session is no longer valid, please log in again")
		} else {
			fmt.Fprintf(a.out, "whoami failed: %v\n", err)
		}
		return err
	}

	fmt.Fprintf(a.out, "id:         %s\n", id.ID)
	fmt.Fprintf(a.out, "email:      %s\n", id.Email)
	fmt.Fprintf(a.out, "user type:  %s\n", id.UserType)
	fmt.Fprintf(a.out, "expires at: %s\n", id.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
