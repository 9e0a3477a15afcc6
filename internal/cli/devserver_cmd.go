// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/jeranaias/backoffice-tui/internal/devserver"
	"github.com/jeranaias/backoffice-tui/internal/identity"
	"github.com/jeranaias/backoffice-tui/internal/logging"
)

// bootstrapAdmin is created when the dev server starts with no accounts.
const bootstrapAdmin = "admin@backoffice.local"

// HandleDevServer runs the local identity service until ctx is cancelled.
func HandleDevServer(ctx context.Context, args Args, out io.Writer) error {
	cfg, err := loadConfig(args.ConfigPath)
	if err != nil {
		return err
	}
	p := NewArgParser(args.Raw)

	opts := devserver.OptionsFromConfig(cfg.DevServer)
	opts.Addr = p.FlagOrDefault("addr", opts.Addr)
	opts.SeedFile = p.FlagOrDefault("seed", opts.SeedFile)

	level := cfg.Logging.Level
	if args.Verbose {
		level = "debug"
	}
	opts.Logger = logging.NewLogger(level, "")
	defer opts.Logger.Close()

	srv, err := devserver.New(opts)
	if err != nil {
		return err
	}

	var bootstrapPassword string
	if srv.Directory().Len() == 0 {
		bootstrapPassword = strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
		if _, err := srv.Directory().Create(identity.RegisterForm{
			Email:    bootstrapAdmin,
			Username: "admin",
			Password: bootstrapPassword,
			Role:     "admin",
			Active:   true,
		}); err != nil {
			return fmt.Errorf("failed to create bootstrap admin: %w", err)
		}
	}

	return srv.ListenAndServe(ctx, func(addr string) {
		base := "http://" + addr + "/api"
		fmt.Fprintf(out, "%s identity service listening on %s\n", SuccessStyle.Render("devserver:"), base)
		fmt.Fprintf(out, "  export BACKOFFICE_IDENTITY_URL=%s\n", base)
		if bootstrapPassword != "" {
			fmt.Fprintf(out, "  sign in as %s with password %s\n", bootstrapAdmin, bootstrapPassword)
		}
		fmt.Fprintln(out, DimStyle.Render("  Ctrl+C to stop"))
	})
}
