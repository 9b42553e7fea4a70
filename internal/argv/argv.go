// SPDX-License-Identifier: AGPL-3.0-or-later

// Package argv turns raw process arguments into an action name, global
// flags and the option map handed to the dispatcher.
package argv

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/flowd-org/ask/internal/types"
	"github.com/spf13/pflag"
)

// Globals are the flags accepted before the action name.
type Globals struct {
	ConfigFile string
	LogLevel   string
	Verbose    int
	NoJournal  bool
	Events     bool
	JSON       bool
	Help       bool
}

// Invocation is one parsed command line.
type Invocation struct {
	Globals Globals
	Action  string
	Options types.Options
	// Args holds the raw tokens following the action name.
	Args []string
}

// NewGlobalFlagSet registers the global flags on a fresh flag set bound to g.
// Parsing stops at the first non-flag token.
func NewGlobalFlagSet(g *Globals) *pflag.FlagSet {
	fs := pflag.NewFlagSet("ask", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.StringVar(&g.ConfigFile, "config", "", "Application config file (default ./ask.yaml)")
	fs.StringVar(&g.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	fs.CountVarP(&g.Verbose, "verbose", "v", "Increase verbosity")
	fs.BoolVar(&g.NoJournal, "no-journal", false, "Do not record the dispatch in the journal")
	fs.BoolVar(&g.Events, "events", false, "Stream dispatch events to stderr")
	fs.BoolVar(&g.JSON, "json", false, "Render events and listings as JSON")
	fs.BoolVarP(&g.Help, "help", "h", false, "Show help")
	return fs
}

// Parse splits tokens into global flags, the action name and its options.
// An empty Action means no action was given.
func Parse(tokens []string) (Invocation, error) {
	var inv Invocation
	fs := NewGlobalFlagSet(&inv.Globals)
	if err := fs.Parse(tokens); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			inv.Globals.Help = true
			return inv, nil
		}
		return inv, fmt.Errorf("parse flags: %w", err)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return inv, nil
	}
	inv.Action = rest[0]
	inv.Args = rest[1:]
	inv.Options = Tokenize(inv.Args)
	return inv, nil
}

// Tokenize converts action tokens into options. "--key=value" sets key to
// value, a bare "--key" sets it to true, and every other token is positional,
// keyed by its 0-based index. Tokens after "--" are always positional.
func Tokenize(tokens []string) types.Options {
	opts := types.Options{}
	position := 0
	literal := false
	for _, tok := range tokens {
		if !literal && tok == "--" {
			literal = true
			continue
		}
		if !literal && strings.HasPrefix(tok, "--") {
			name, value, hasValue := strings.Cut(tok[2:], "=")
			if name != "" {
				if hasValue {
					opts[name] = value
				} else {
					opts[name] = true
				}
				continue
			}
		}
		opts[types.PositionalKey(position)] = tok
		position++
	}
	return opts
}
