// folioctl is a small admin CLI for the element-store server: register an
// owner, and create or revoke share links.
//
// Usage:
//
//	folioctl register
//	folioctl share create <type> <id> [ttl]
//	folioctl share revoke <id>
//	folioctl list
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/foliosync/foliosync/internal/client/cli"
	"github.com/foliosync/foliosync/internal/client/config"
	"github.com/foliosync/foliosync/internal/client/store"
	"github.com/foliosync/foliosync/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: folioctl <register|share|list> ...")
	}

	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	gateway := store.NewHTTPStore(cfg, nil, logger)
	app := cli.NewApp(gateway, os.Stdin, os.Stdout)
	ctx := context.Background()

	switch args[0] {
	case "register":
		return app.Register(ctx)

	case "list":
		if err := app.Login(ctx); err != nil {
			return err
		}
		return app.List(ctx)

	case "share":
		if len(args) < 2 {
			return fmt.Errorf("usage: folioctl share <create|revoke> ...")
		}
		if err := app.Login(ctx); err != nil {
			return err
		}

		switch args[1] {
		case "create":
			if len(args) < 4 {
				return fmt.Errorf("usage: folioctl share create <type> <id> [ttl]")
			}
			var ttl time.Duration
			if len(args) > 4 {
				d, err := time.ParseDuration(args[4])
				if err != nil {
					return fmt.Errorf("invalid ttl: %w", err)
				}
				ttl = d
			}
			return app.CreateShare(ctx, args[2], args[3], ttl)

		case "revoke":
			if len(args) < 3 {
				return fmt.Errorf("usage: folioctl share revoke <id>")
			}
			return app.RevokeShare(ctx, args[2])

		default:
			return fmt.Errorf("unknown share command %q", args[1])
		}

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
