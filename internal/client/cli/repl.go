package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a
// lightweight stub instead.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	UnlockWithPasscode(ctx context.Context) error
	Logout(ctx context.Context) error
	AddNote(ctx context.Context) error
	AddTag(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context) error
	Delete(ctx context.Context) error
	Sync(ctx context.Context) error
	AddPasscode(ctx context.Context) error
	Upgrade(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the vault CLI.
//
// It reads a line from scanner, parses the first token as the command, and
// dispatches to methods on a. Unknown commands are reported back to the
// user. The loop exits on scanner EOF or when the user types "exit" or
// "quit".
//
// Prompt & commands
//
// Not logged in:
//   - help              — show available commands
//   - register          — create a new account
//   - login             — authenticate against the account password
//   - unlock            — unwrap the root key with a local passcode
//   - exit | quit       — leave the program
//
// Logged in:
//   - help              — show available commands
//   - addnote           — add a note
//   - addtag            — add a standalone tag
//   - list              — list notes
//   - show              — show a single note (interactive uuid prompt)
//   - delete            — delete a note (interactive uuid prompt)
//   - sync              — synchronize with the server
//   - setpasscode       — add a local passcode on top of the account root key
//   - upgrade           — re-key the account at the latest protocol version
//   - logout            — clear the in-memory root key
//   - exit | quit       — leave the program
//
// Errors returned by command handlers are printed by logCommandError and
// otherwise ignored here, keeping the loop resilient to a single failed command.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("vault> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: addnote, addtag, list, show, delete, sync, setpasscode, upgrade, logout, exit")
			} else {
				printlnFn("Available commands: register, login, unlock, exit")
			}

		case "register":
			logCommandError(a.Register(ctx))

		case "login":
			logCommandError(a.Login(ctx))

		case "unlock":
			logCommandError(a.UnlockWithPasscode(ctx))

		case "addnote":
			logCommandError(a.AddNote(ctx))

		case "addtag":
			logCommandError(a.AddTag(ctx))

		case "list":
			logCommandError(a.List(ctx))

		case "show":
			logCommandError(a.Show(ctx))

		case "delete":
			logCommandError(a.Delete(ctx))

		case "sync":
			logCommandError(a.Sync(ctx))

		case "setpasscode":
			logCommandError(a.AddPasscode(ctx))

		case "upgrade":
			logCommandError(a.Upgrade(ctx))

		case "logout":
			logCommandError(a.Logout(ctx))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func logCommandError(err error) {
	if err != nil {
		printlnFn("error:", err.Error())
	}
}
