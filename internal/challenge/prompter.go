// Package challenge defines the UI prompting external collaborator: the
// key manager and CLI never read a terminal or render a dialog directly,
// they issue a Request and get back a value or a cancellation.
package challenge

import "context"

// Kind names the shape of value a Request is asking for, so a Prompter can
// choose how to render and validate it (masked input for a secret, plain
// text otherwise).
type Kind int

const (
	// KindAccountPassword asks for the account password used to derive the
	// root key.
	KindAccountPassword Kind = iota
	// KindPasscode asks for the local passcode used to derive the wrapper key.
	KindPasscode
	// KindValue asks for an arbitrary re-authentication value, e.g. a
	// privileges session credential.
	KindValue
)

// Request describes one prompt to show the user.
type Request struct {
	Kind   Kind
	Prompt string
}

// Response is a Prompter's answer to a Request.
type Response struct {
	Value    string
	Canceled bool
}

// Prompter is implemented by whatever surface can ask the user a question
// and wait for an answer: a terminal, a native dialog, a scripted fake.
// Prompt reports a user cancellation as a Response with Canceled set and a
// nil error, never as a zero-value Response silently treated as an empty
// answer; PromptValue turns that into ErrChallengeCanceled.
type Prompter interface {
	Prompt(ctx context.Context, req Request) (Response, error)
}

// PromptValue is a convenience wrapper: it issues req and returns the
// answered value, translating a canceled Response into ErrChallengeCanceled
// for callers that only care about the value.
func PromptValue(ctx context.Context, p Prompter, req Request) (string, error) {
	resp, err := p.Prompt(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.Canceled {
		return "", ErrChallengeCanceled
	}
	return resp.Value, nil
}
