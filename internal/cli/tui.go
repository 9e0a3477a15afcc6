// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/jeranaias/backoffice-tui/internal/guard"
	"github.com/jeranaias/backoffice-tui/internal/ui/console"
	"github.com/jeranaias/backoffice-tui/internal/ui/styles"
)

// HandleTUI runs the interactive console.
func HandleTUI(ctx context.Context, env *Env, args Args) error {
	if !IsTTY() || !IsStdoutTTY() {
		return &UsageError{Message: "the console needs a terminal; use the login, status and shell commands instead"}
	}

	g := guard.New(env.Sessions, env.Policy, guard.WithLogger(env.Logger))
	defer g.Close()

	theme := styles.NewTheme(styles.Options{
		Theme:   env.Config.UI.Theme,
		NoColor: args.NoColor || env.Config.UI.NoColor,
	})
	return console.Run(ctx, console.Deps{
		Sessions:   env.Sessions,
		Guard:      g,
		Policy:     env.Policy,
		Theme:      theme,
		Logger:     env.Logger,
		WarnBefore: env.Config.Session.WarnBefore(),
	})
}

// HandleVersion prints version information.
func HandleVersion(args Args, out io.Writer) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(out)
	}
	PrintVersion(out)
	return nil
}

// HandleUnknown reports an unknown command.
func HandleUnknown(args Args) error {
	return &UsageError{Message: fmt.Sprintf("unknown command %q", args.Name), Usage: "backoffice help"}
}
