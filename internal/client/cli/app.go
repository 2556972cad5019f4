// Package cli implements the folioctl admin commands: owner registration
// and share-link management against a running element-store server.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/foliosync/foliosync/internal/client/store"
	"github.com/foliosync/foliosync/internal/models"
)

// Gateway is the slice of the HTTP store the commands need.
type Gateway interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	CreateShare(ctx context.Context, elementType, elementID string, permissions []string, ttl time.Duration) (*models.ShareLink, error)
	RevokeShare(ctx context.Context, shareID string) (bool, error)
	ListAll(ctx context.Context) map[string]any
}

var _ Gateway = (*store.HTTPStore)(nil)

// App runs one command against the server.
type App struct {
	gateway Gateway
	in      *bufio.Reader
	out     io.Writer
}

// NewApp wires the command runner.
func NewApp(gateway Gateway, in io.Reader, out io.Writer) *App {
	return &App{gateway: gateway, in: bufio.NewReader(in), out: out}
}

// Register prompts for credentials and creates the owner account.
func (a *App) Register(ctx context.Context) error {
	username, err := GetSimpleText(a.in, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.gateway.Register(ctx, username, string(password)); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "registered %s\n", username)
	return nil
}

// Login prompts for credentials and opens a session for follow-up commands.
func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.in, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.gateway.Login(ctx, username, string(password)); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "logged in")
	return nil
}

// CreateShare issues a share link and prints its id and expiry.
func (a *App) CreateShare(ctx context.Context, elementType, elementID string, ttl time.Duration) error {
	link, err := a.gateway.CreateShare(ctx, elementType, elementID, nil, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "share %s for %s:%s expires %s\n",
		link.ID, link.ElementType, link.ElementID, link.ExpiresAt.Format(time.RFC3339))
	return nil
}

// RevokeShare deactivates a link.
func (a *App) RevokeShare(ctx context.Context, shareID string) error {
	revoked, err := a.gateway.RevokeShare(ctx, shareID)
	if err != nil {
		return err
	}

	if !revoked {
		fmt.Fprintf(a.out, "share %s was not active\n", shareID)
		return nil
	}
	fmt.Fprintf(a.out, "revoked %s\n", shareID)
	return nil
}

// List prints every element key the session can see.
func (a *App) List(ctx context.Context) error {
	all := a.gateway.ListAll(ctx)
	if len(all) == 0 {
		fmt.Fprintln(a.out, "no elements")
		return nil
	}
	for key := range all {
		fmt.Fprintln(a.out, key)
	}
	return nil
}
