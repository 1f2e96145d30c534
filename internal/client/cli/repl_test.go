package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubExec is a minimal execIface fake that records which methods were
// called and can be told to fail the next call.
type stubExec struct {
	loggedIn bool
	calls    []string
	failNext error
}

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	return nil
}

func (s *stubExec) isLoggedIn() bool                             { return s.loggedIn }
func (s *stubExec) Register(ctx context.Context) error           { return s.record("register") }
func (s *stubExec) Login(ctx context.Context) error              { return s.record("login") }
func (s *stubExec) UnlockWithPasscode(ctx context.Context) error { return s.record("unlock") }
func (s *stubExec) Logout(ctx context.Context) error             { return s.record("logout") }
func (s *stubExec) AddNote(ctx context.Context) error            { return s.record("addnote") }
func (s *stubExec) AddTag(ctx context.Context) error             { return s.record("addtag") }
func (s *stubExec) List(ctx context.Context) error               { return s.record("list") }
func (s *stubExec) Show(ctx context.Context) error               { return s.record("show") }
func (s *stubExec) Delete(ctx context.Context) error             { return s.record("delete") }
func (s *stubExec) Sync(ctx context.Context) error               { return s.record("sync") }
func (s *stubExec) AddPasscode(ctx context.Context) error        { return s.record("setpasscode") }
func (s *stubExec) Upgrade(ctx context.Context) error            { return s.record("upgrade") }

func runLines(t *testing.T, a execIface, lines string) []string {
	t.Helper()
	var printed []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		printed = append(printed, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })

	runREPL(context.Background(), a, func() string { return "test" }, bufio.NewScanner(strings.NewReader(lines)))
	return printed
}

func TestREPL_DispatchesKnownCommands(t *testing.T) {
	s := &stubExec{loggedIn: true}
	runLines(t, s, "addnote\naddtag\nlist\nshow\ndelete\nsync\nlogout\nexit\n")

	require.Equal(t, []string{"addnote", "addtag", "list", "show", "delete", "sync", "logout"}, s.calls)
}

func TestREPL_DispatchesKeyLifecycleCommands(t *testing.T) {
	s := &stubExec{loggedIn: true}
	runLines(t, s, "setpasscode\nupgrade\nexit\n")

	require.Equal(t, []string{"setpasscode", "upgrade"}, s.calls)
}

func TestREPL_LoggedOutCommandsRouteSeparately(t *testing.T) {
	s := &stubExec{loggedIn: false}
	runLines(t, s, "register\nlogin\nunlock\nexit\n")

	require.Equal(t, []string{"register", "login", "unlock"}, s.calls)
}

func TestREPL_UnknownCommandIsReportedNotFatal(t *testing.T) {
	s := &stubExec{loggedIn: true}
	printed := runLines(t, s, "frobnicate\nlist\nexit\n")

	require.Equal(t, []string{"list"}, s.calls)
	require.Contains(t, strings.Join(printed, "\n"), "Unknown command")
}

func TestREPL_HelpVariesByLoginState(t *testing.T) {
	loggedOut := &stubExec{loggedIn: false}
	printedOut := runLines(t, loggedOut, "help\nexit\n")
	require.Contains(t, strings.Join(printedOut, "\n"), "register")

	loggedIn := &stubExec{loggedIn: true}
	printedIn := runLines(t, loggedIn, "help\nexit\n")
	require.Contains(t, strings.Join(printedIn, "\n"), "addnote")
}

func TestREPL_CommandErrorDoesNotStopTheLoop(t *testing.T) {
	s := &stubExec{loggedIn: true, failNext: errors.New("boom")}
	printed := runLines(t, s, "sync\nlist\nexit\n")

	require.Equal(t, []string{"sync", "list"}, s.calls)
	require.Contains(t, strings.Join(printed, "\n"), "boom")
}

func TestREPL_ScannerEOF_StopsWithoutExitCommand(t *testing.T) {
	s := &stubExec{loggedIn: true}
	runLines(t, s, "list\n")

	require.Equal(t, []string{"list"}, s.calls)
}
