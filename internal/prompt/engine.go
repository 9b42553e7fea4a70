// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt asks the user for a single argument value and validates the
// answer against the argument's option set.
package prompt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/flowd-org/ask/internal/types"
	"github.com/flowd-org/ask/internal/ui/style"
)

// Engine renders prompts to out and reads answers from lines.
type Engine struct {
	lines  LineProvider
	out    io.Writer
	logger *slog.Logger
}

func NewEngine(lines LineProvider, out io.Writer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{lines: lines, out: out, logger: logger}
}

// Render returns the prompt text for arg and the set of accepted answers
// (nil when any answer is accepted).
func Render(arg *types.ArgumentSchema) (string, []string) {
	var b strings.Builder
	text := arg.PromptText()
	if arg.Options.Len() == 0 {
		b.WriteString(style.Prompt(text))
		b.WriteString(" ")
		return b.String(), nil
	}

	accepted := arg.Options.Keys()
	if arg.DisplayType == types.DisplayList {
		b.WriteString(style.Prompt(text))
		b.WriteString("\n")
		for i, e := range arg.Options.Entries {
			label := e.Label()
			switch {
			case arg.SelectByIndex:
				fmt.Fprintf(&b, "  %s) %s\n", style.Choice(strconv.Itoa(i+1)), label)
			case label != e.Key:
				fmt.Fprintf(&b, "  - %s  %s\n", style.Choice(e.Key), style.Muted(label))
			default:
				fmt.Fprintf(&b, "  - %s\n", style.Choice(e.Key))
			}
		}
		b.WriteString("> ")
		return b.String(), accepted
	}

	b.WriteString(style.Prompt(text))
	b.WriteString(" [")
	b.WriteString(style.Choice(strings.Join(accepted, "|")))
	b.WriteString("] ")
	return b.String(), accepted
}

// Ask blocks until a valid answer for arg is read. An empty answer is always
// accepted. Invalid answers print a notice and ask again; there is no retry
// limit, only the end of input stops the loop.
func (e *Engine) Ask(ctx context.Context, arg *types.ArgumentSchema) (string, error) {
	text, accepted := Render(arg)
	for {
		if _, err := io.WriteString(e.out, text); err != nil {
			return "", err
		}
		answer, err := e.read(ctx, arg)
		if err != nil {
			fmt.Fprintln(e.out)
			return "", fmt.Errorf("read answer for %q: %w", arg.Name, err)
		}
		answer = strings.TrimSpace(answer)

		if arg.SelectByIndex {
			if n, convErr := strconv.Atoi(answer); convErr == nil {
				if entry, ok := arg.Options.At(n); ok {
					answer = entry.Key
				}
			}
		}

		if answer == "" || accepted == nil || contains(accepted, answer) {
			return answer, nil
		}
		e.logger.Debug("invalid prompt answer", slog.String("argument", arg.Name))
		fmt.Fprintln(e.out, style.Warning(fmt.Sprintf("invalid option %q", answer)))
	}
}

func (e *Engine) read(ctx context.Context, arg *types.ArgumentSchema) (string, error) {
	if arg.Secret {
		if sp, ok := e.lines.(SecretProvider); ok {
			line, err := sp.ReadSecret(ctx)
			fmt.Fprintln(e.out)
			return line, err
		}
	}
	return e.lines.ReadLine(ctx)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
