// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/flowd-org/ask/internal/argv"
	"github.com/flowd-org/ask/internal/engine"
	"github.com/flowd-org/ask/internal/indexer"
	"github.com/flowd-org/ask/internal/paths"
	"github.com/flowd-org/ask/internal/prompt"
	"github.com/flowd-org/ask/internal/resolver"
	"github.com/flowd-org/ask/internal/schemastore"
	"github.com/flowd-org/ask/internal/ui/style"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Streams are the process-level inputs and outputs of a command run.
type Streams struct {
	In      prompt.LineProvider
	Out     io.Writer
	Err     io.Writer
	WorkDir string
}

func defaultStreams() Streams {
	return Streams{In: prompt.NewTerminalProvider(os.Stdin), Out: os.Stdout, Err: os.Stderr}
}

// NewRootCmd builds the ask command tree. Everything that is not a ":"
// subcommand is treated as an action to dispatch.
func NewRootCmd(s Streams) *cobra.Command {
	var globals argv.Globals
	root := &cobra.Command{
		Use:   "ask [flags] <action> [args...]",
		Short: "Resolve an action's arguments interactively and dispatch it",
		Long: `ask looks up the schema of <action>, fills its arguments from the command line,
defaults and interactive prompts, and invokes the handler the schema names.

Arguments: positional tokens fill arguments with a positionalIndex,
--name=value sets an argument, a bare --name sets it to true.`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := argv.Parse(args)
			if err != nil {
				return err
			}
			if inv.Globals.Help || inv.Action == "" {
				return cmd.Help()
			}
			return runAction(cmd.Context(), s, inv)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveDefault
		}
		return completeActions(cmd.Context(), s, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	root.PersistentFlags().AddFlagSet(argv.NewGlobalFlagSet(&globals))
	root.SetOut(s.Out)
	root.SetErr(s.Err)

	root.AddCommand(NewActionsCmd(s, &globals))
	root.AddCommand(NewShowCmd(s, &globals))
	root.AddCommand(NewPlanCmd(s, &globals))
	root.AddCommand(NewHistoryCmd(s, &globals))
	root.AddCommand(NewInitCmd(s, &globals))
	root.AddCommand(NewCompletionCmd(root))
	return root
}

// Execute runs ask with the process arguments and exits non-zero on error.
func Execute() {
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		paths.SetDataDirOverride(dataDir)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	style.Init(term.IsTerminal(int(os.Stdout.Fd())))
	s := defaultStreams()
	root := NewRootCmd(s)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(s.Err, style.Error(FormatError(err)))
		os.Exit(1)
	}
}

// completeActions lists action and alias names starting with prefix.
func completeActions(ctx context.Context, s Streams, prefix string) []string {
	quiet := s
	quiet.Err = io.Discard
	app, err := newApp(ctx, argv.Globals{NoJournal: true}, quiet, appOptions{})
	if err != nil {
		return nil
	}
	defer app.Close()
	res, err := indexer.Discover(app.Roots, app.Config.Aliases)
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range res.Actions {
		if strings.HasPrefix(a.Name, prefix) {
			out = append(out, a.Name+"\t"+a.Description)
		}
	}
	for _, a := range res.Aliases {
		if strings.HasPrefix(a.Name, prefix) {
			out = append(out, a.Name+"\t"+a.Target)
		}
	}
	return out
}

// NoActionError reports an action with no schema that is not a fallback event.
type NoActionError struct {
	Action string
}

func (e *NoActionError) Error() string { return fmt.Sprintf("no action %q", e.Action) }

// FormatError renders err as the "[x] <origin>: <message>" console line.
func FormatError(err error) string {
	origin := "ask"
	var (
		handlerErr *engine.HandlerError
		argErr     *resolver.ArgError
		cfgErr     *schemastore.ConfigError
		cycleErr   *schemastore.CycleError
		refErr     *schemastore.ReferenceError
	)
	switch {
	case errors.As(err, &handlerErr):
		origin = "dispatcher"
	case errors.As(err, &argErr):
		origin = "resolver"
	case errors.As(err, &cfgErr), errors.As(err, &cycleErr), errors.As(err, &refErr):
		origin = "schema"
	}
	return fmt.Sprintf("[x] %s: %v", origin, err)
}
