package challenge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// cancelToken is what a user types at any prompt to cancel it, mirroring
// how the CLI's other free-text prompts treat an empty line as "done".
const cancelToken = "cancel"

// ConsolePrompter renders challenges on a terminal: masked input for
// secrets, plain text otherwise. Typing "cancel" at any prompt cancels it.
type ConsolePrompter struct {
	reader  *bufio.Reader
	out     io.Writer
	stdinFD int // file descriptor passed to term.ReadPassword
}

// NewConsolePrompter builds a ConsolePrompter reading from in and writing
// prompts to out. stdinFD is the file descriptor to use for masked reads
// (os.Stdin.Fd() in production, overridable in tests that stub readPassword).
func NewConsolePrompter(in io.Reader, out io.Writer, stdinFD int) *ConsolePrompter {
	return &ConsolePrompter{reader: bufio.NewReader(in), out: out, stdinFD: stdinFD}
}

func (p *ConsolePrompter) Prompt(_ context.Context, req Request) (Response, error) {
	switch req.Kind {
	case KindAccountPassword, KindPasscode:
		return p.promptMasked(req.Prompt)
	default:
		return p.promptText(req.Prompt)
	}
}

func (p *ConsolePrompter) promptMasked(prompt string) (Response, error) {
	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return Response{}, err
	}
	raw, err := readPassword(p.stdinFD)
	fmt.Fprintln(p.out)
	if err != nil {
		return Response{}, err
	}
	value := string(raw)
	if value == cancelToken {
		return Response{Canceled: true}, nil
	}
	return Response{Value: value}, nil
}

func (p *ConsolePrompter) promptText(prompt string) (Response, error) {
	if _, err := fmt.Fprint(p.out, prompt+"\n> "); err != nil {
		return Response{}, err
	}
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) || len(line) == 0 {
			return Response{}, err
		}
	}
	value := strings.TrimSpace(line)
	if value == cancelToken {
		return Response{Canceled: true}, nil
	}
	return Response{Value: value}, nil
}

// DefaultConsolePrompter builds a ConsolePrompter wired to the process's
// own stdin/stdout.
func DefaultConsolePrompter() *ConsolePrompter {
	return NewConsolePrompter(os.Stdin, os.Stdout, int(os.Stdin.Fd()))
}
