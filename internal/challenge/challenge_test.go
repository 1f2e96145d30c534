package challenge

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScripted_AnswersInOrder(t *testing.T) {
	s := NewScripted("wrong-pw", "1234")
	ctx := context.Background()

	v1, err := PromptValue(ctx, s, Request{Kind: KindPasscode, Prompt: "Enter passcode"})
	require.NoError(t, err)
	require.Equal(t, "wrong-pw", v1)

	v2, err := PromptValue(ctx, s, Request{Kind: KindPasscode, Prompt: "Enter passcode"})
	require.NoError(t, err)
	require.Equal(t, "1234", v2)

	require.Len(t, s.Calls(), 2)
}

func TestScripted_Cancel(t *testing.T) {
	s := NewScripted().QueueCancel()
	_, err := PromptValue(context.Background(), s, Request{Kind: KindAccountPassword})
	require.ErrorIs(t, err, ErrChallengeCanceled)
}

func TestScripted_ExhaustedQueueErrors(t *testing.T) {
	s := NewScripted()
	_, err := s.Prompt(context.Background(), Request{})
	require.Error(t, err)
}

func TestConsolePrompter_TextPrompt_ReturnsTrimmedLine(t *testing.T) {
	in := bytes.NewBufferString("hello world\n")
	var out bytes.Buffer
	p := NewConsolePrompter(in, &out, 0)

	resp, err := p.Prompt(context.Background(), Request{Kind: KindValue, Prompt: "Say something"})
	require.NoError(t, err)
	require.False(t, resp.Canceled)
	require.Equal(t, "hello world", resp.Value)
	require.Contains(t, out.String(), "Say something")
}

func TestConsolePrompter_TextPrompt_CancelToken(t *testing.T) {
	in := bytes.NewBufferString("cancel\n")
	var out bytes.Buffer
	p := NewConsolePrompter(in, &out, 0)

	resp, err := p.Prompt(context.Background(), Request{Kind: KindValue, Prompt: "Say something"})
	require.NoError(t, err)
	require.True(t, resp.Canceled)
}

func TestConsolePrompter_MaskedPrompt_UsesReadPasswordSeam(t *testing.T) {
	orig := readPassword
	defer func() { readPassword = orig }()
	readPassword = func(fd int) ([]byte, error) { return []byte("s3cret"), nil }

	var out bytes.Buffer
	p := NewConsolePrompter(bytes.NewReader(nil), &out, 0)

	resp, err := p.Prompt(context.Background(), Request{Kind: KindAccountPassword, Prompt: "Enter password"})
	require.NoError(t, err)
	require.Equal(t, "s3cret", resp.Value)
}
