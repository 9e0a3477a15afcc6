// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing for backoffice.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdStatus
	CmdRegister
	CmdUsers
	CmdRoutes
	CmdCan
	CmdShell
	CmdDevServer
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name used in JSON responses.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdLogin:
		return "login"
	case CmdLogout:
		return "logout"
	case CmdStatus:
		return "status"
	case CmdRegister:
		return "register"
	case CmdUsers:
		return "users"
	case CmdRoutes:
		return "routes"
	case CmdCan:
		return "can"
	case CmdShell:
		return "shell"
	case CmdDevServer:
		return "devserver"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	JSON       bool
	NoColor    bool
	// Ephemeral keeps credentials in memory for this process only.
	Ephemeral bool
	Verbose   bool

	// Name is the command word as typed; set for CmdUnknown.
	Name string
	// Raw holds the arguments after the command word.
	Raw []string
}

const usageText = `backoffice - Click2Eat staff back office console

Usage:
  backoffice [tui]                  Start the console (default)
  backoffice login [--email E] [--password-stdin]
                                    Sign in and save the session
  backoffice logout                 End the session and clear saved credentials
  backoffice status                 Show the session and time remaining
  backoffice register --email E --username U [--role R] [--inactive] [--password-stdin]
                                    Register a staff member
  backoffice users [--search S] [--role R]
                                    List staff (admin)
  backoffice routes                 List screens and who may open them
  backoffice can <route|path> [--role R]
                                    Show where a role ends up for a screen
  backoffice shell                  Navigate screens from a prompt
  backoffice devserver [--addr A] [--seed FILE]
                                    Run a local identity service
  backoffice version                Show version
  backoffice help                   Show this help

Global flags:
  --config PATH     Config file (default ~/.backoffice/config.toml)
  --json            JSON output
  --no-color        Disable colour
  --ephemeral       Keep credentials in memory only
  -v, --verbose     Debug logging

Sessions last one hour from sign in and are not extended by activity.
`

// PrintUsage writes the usage text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "backoffice %s (commit %s, built %s, %s %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the arguments after the program name.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	name := strings.ToLower(remaining[0])
	parsed.Raw = remaining[1:]

	switch name {
	case "tui", "console":
		return CmdTUI, parsed
	case "login":
		return CmdLogin, parsed
	case "logout":
		return CmdLogout, parsed
	case "status", "s":
		return CmdStatus, parsed
	case "register":
		return CmdRegister, parsed
	case "users", "staff":
		return CmdUsers, parsed
	case "routes":
		return CmdRoutes, parsed
	case "can":
		return CmdCan, parsed
	case "shell":
		return CmdShell, parsed
	case "devserver", "dev-server":
		return CmdDevServer, parsed
	case "version", "--version":
		return CmdVersion, parsed
	case "help", "-h", "--help":
		return CmdHelp, parsed
	default:
		parsed.Name = remaining[0]
		return CmdUnknown, parsed
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
// Global flags may appear anywhere on the line.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--json":
			parsed.JSON = true
		case "--no-color":
			parsed.NoColor = true
		case "--ephemeral":
			parsed.Ephemeral = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--config":
			if i+1 < len(args) {
				i++
				parsed.ConfigPath = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--config=") {
				parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
			} else {
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsed
}
