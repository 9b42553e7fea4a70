package prompt

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func pipeProvider(t *testing.T, input string) *TerminalProvider {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	_, err = w.WriteString(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return NewTerminalProvider(r)
}

func TestTerminalProviderReadsLines(t *testing.T) {
	p := pipeProvider(t, "one\r\ntwo")
	ctx := context.Background()

	line, err := p.ReadLine(ctx)
	require.NoError(t, err)
	require.Equal(t, "one", line)
	line, err = p.ReadLine(ctx)
	require.NoError(t, err)
	require.Equal(t, "two", line)
}

func TestTerminalProviderSecretAfterTypeAhead(t *testing.T) {
	p := pipeProvider(t, "name\nhunter2\n")
	p.isTerminal = func(int) bool { return true }
	ctx := context.Background()

	line, err := p.ReadLine(ctx)
	require.NoError(t, err)
	require.Equal(t, "name", line)

	secret, err := p.ReadSecret(ctx)
	require.NoError(t, err)
	require.Equal(t, "hunter2", secret, "buffered input is answered in order")
}

func TestTerminalProviderSecretWithoutTerminal(t *testing.T) {
	p := pipeProvider(t, "pw\n")
	p.isTerminal = func(int) bool { return false }
	secret, err := p.ReadSecret(context.Background())
	require.NoError(t, err)
	require.Equal(t, "pw", secret)
}
