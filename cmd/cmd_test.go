package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/flowd-org/ask/internal/engine"
	"github.com/flowd-org/ask/internal/prompt"
	"github.com/stretchr/testify/require"
)

const greetSchema = `description: Greet someone
handler: echo.options
echoResult: true
arguments:
  name:
    prompt: "Name?"
    positionalIndex: 0
  color:
    prompt: "Color?"
    options: [red, blue]
`

type harness struct {
	dir string
	out bytes.Buffer
	err bytes.Buffer
}

func newHarness(t *testing.T, config string) *harness {
	t.Helper()
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("ASK_LOG_LEVEL", "")
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "actions"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "actions", "greet.yaml"), []byte(greetSchema), 0o644))
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ask.yaml"), []byte(config), 0o644))
	}
	return &harness{dir: dir}
}

func (h *harness) run(t *testing.T, answers []string, args ...string) error {
	t.Helper()
	root := NewRootCmd(Streams{
		In:      prompt.NewScriptedProvider(answers...),
		Out:     &h.out,
		Err:     &h.err,
		WorkDir: h.dir,
	})
	root.SetArgs(args)
	return root.Execute()
}

const noJournal = "journal:\n  enabled: false\n"

func TestRunActionResolvesAndEchoes(t *testing.T) {
	h := newHarness(t, noJournal)
	err := h.run(t, []string{"purple", "blue"}, "greet", "bob")
	require.NoError(t, err)

	out := h.out.String()
	require.Contains(t, out, engine.Separator)
	require.Contains(t, out, "Color? [red|blue] ")
	require.Contains(t, out, `invalid option "purple"`)
	require.Contains(t, out, "color: blue\nname: bob\n")
	require.NotContains(t, out, "Name?")
}

func TestRunActionUsesEnvDefaults(t *testing.T) {
	h := newHarness(t, noJournal)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, ".ask.env"), []byte("color=red\nname=env\n"), 0o644))

	err := h.run(t, nil, "greet", "--name=cli")
	require.NoError(t, err)
	require.Contains(t, h.out.String(), "color: red\nname: cli\n")
}

func TestRunActionAlias(t *testing.T) {
	h := newHarness(t, noJournal+"aliases:\n  - from: hi\n    to: greet\n")
	err := h.run(t, []string{"red"}, "hi", "ann")
	require.NoError(t, err)
	require.Contains(t, h.out.String(), "name: ann")
}

func TestRunUnknownAction(t *testing.T) {
	h := newHarness(t, noJournal)
	err := h.run(t, nil, "nope")
	var noAction *NoActionError
	require.True(t, errors.As(err, &noAction))
	require.Equal(t, `[x] ask: no action "nope"`, FormatError(err))
}

func TestRunFallbackEvent(t *testing.T) {
	h := newHarness(t, noJournal+"default_namespace: echo\nfallback_events: [options]\n")
	require.NoError(t, h.run(t, nil, "options"))
	require.Contains(t, h.out.String(), engine.Separator)
}

func TestRunSelfEntryPointIsRejected(t *testing.T) {
	h := newHarness(t, noJournal)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "actions", "loop.yaml"), []byte("handler: ask.auto\n"), 0o644))
	err := h.run(t, nil, "loop")
	var handlerErr *engine.HandlerError
	require.True(t, errors.As(err, &handlerErr), "got %v", err)
	require.Contains(t, FormatError(err), "[x] dispatcher: ")
}

func TestRunWithoutActionShowsHelp(t *testing.T) {
	h := newHarness(t, noJournal)
	require.NoError(t, h.run(t, nil))
	require.Contains(t, h.out.String(), "Usage:")
}

func TestPlanCommandJSON(t *testing.T) {
	h := newHarness(t, noJournal)
	err := h.run(t, nil, ":plan", "--json", "greet", "bob", "--color=red")
	require.NoError(t, err)

	start := bytes.IndexByte(h.out.Bytes(), '{')
	require.GreaterOrEqual(t, start, 0)
	var plan map[string]interface{}
	require.NoError(t, json.Unmarshal(h.out.Bytes()[start:], &plan))
	require.Equal(t, "echo.options", plan["handler"])
	require.Equal(t, map[string]interface{}{"name": "bob", "color": "red"}, plan["resolved_args"])
	require.Equal(t, map[string]interface{}{"name": "positional", "color": "supplied"}, plan["sources"])
}

func TestActionsCommand(t *testing.T) {
	h := newHarness(t, noJournal+"aliases:\n  - from: hi\n    to: greet\n")
	require.NoError(t, h.run(t, nil, ":actions"))
	out := h.out.String()
	require.Contains(t, out, "greet")
	require.Contains(t, out, "Greet someone")
	require.Contains(t, out, "ALIASES")
	require.Contains(t, out, "confirm")
}

func TestShowCommand(t *testing.T) {
	h := newHarness(t, noJournal)
	require.NoError(t, h.run(t, nil, ":show", "greet"))
	require.Contains(t, h.out.String(), "description: Greet someone")
	require.Contains(t, h.out.String(), "color:")
}

func TestInitScaffoldsRunnableAction(t *testing.T) {
	h := newHarness(t, noJournal)
	require.NoError(t, h.run(t, nil, ":init", "deploy:app"))
	require.FileExists(t, filepath.Join(h.dir, "actions", "deploy", "app.yaml"))
	require.FileExists(t, filepath.Join(h.dir, "actions", "deploy", "app.sh"))

	err := h.run(t, nil, ":init", "deploy:app")
	require.ErrorContains(t, err, "schema already exists")

	h.out.Reset()
	require.NoError(t, h.run(t, nil, ":plan", "deploy:app"))
	require.Contains(t, h.out.String(), "Handler: script.run (instance)")
	require.Contains(t, h.out.String(), "name: demo (default)")
}

func TestHistoryListsJournaledDispatches(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run(t, []string{"red"}, "greet", "bob"))

	h.out.Reset()
	require.NoError(t, h.run(t, nil, ":history", "--json"))
	var entries []HistoryEntry
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "greet", entries[0].Action)
	require.Equal(t, "echo.options", entries[0].Handler)
	require.Equal(t, "completed", entries[0].Status)

	h.out.Reset()
	require.NoError(t, h.run(t, nil, ":history", "--stats"))
	require.Contains(t, h.out.String(), "Journal:")
}

func TestHistoryWithJournalDisabled(t *testing.T) {
	h := newHarness(t, noJournal)
	err := h.run(t, nil, ":history")
	require.ErrorContains(t, err, "journal is disabled")
}
