// backoffice - Staff console for the back office identity service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/backoffice-tui/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cmd, args)
	stop()

	if err != nil {
		cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

func run(ctx context.Context, cmd cli.Command, args cli.Args) error {
	// Commands that need no session.
	switch cmd {
	case cli.CmdVersion:
		return cli.HandleVersion(args, os.Stdout)
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return nil
	case cli.CmdDevServer:
		return cli.HandleDevServer(ctx, args, os.Stdout)
	case cli.CmdUnknown:
		return cli.HandleUnknown(args)
	}

	env, err := cli.Setup(args)
	if err != nil {
		return err
	}
	defer env.Close()

	switch cmd {
	case cli.CmdTUI:
		return cli.HandleTUI(ctx, env, args)
	case cli.CmdLogin:
		return cli.HandleLogin(ctx, env, args)
	case cli.CmdLogout:
		return cli.HandleLogout(env, args)
	case cli.CmdStatus:
		return cli.HandleStatus(env, args)
	case cli.CmdRegister:
		return cli.HandleRegister(ctx, env, args)
	case cli.CmdUsers:
		return cli.HandleUsers(ctx, env, args)
	case cli.CmdRoutes:
		return cli.HandleRoutes(env, args)
	case cli.CmdCan:
		return cli.HandleCan(env, args)
	case cli.CmdShell:
		return cli.RunShell(ctx, env)
	default:
		return cli.HandleUnknown(args)
	}
}
