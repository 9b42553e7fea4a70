package style

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisabledStylesReturnInput(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	Init(true)
	require.False(t, Enabled())
	for _, fn := range []func(string) string{Prompt, Choice, Warning, Error, Success, Muted} {
		require.Equal(t, "text", fn("text"))
	}
}
