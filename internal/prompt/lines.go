// SPDX-License-Identifier: AGPL-3.0-or-later
package prompt

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// LineProvider supplies one line of user input per call. Implementations
// block until a line is available; io.EOF means no more input will arrive.
type LineProvider interface {
	ReadLine(ctx context.Context) (string, error)
}

// SecretProvider is implemented by providers that can read without echo.
type SecretProvider interface {
	ReadSecret(ctx context.Context) (string, error)
}

// TerminalProvider reads lines from a file, normally os.Stdin.
type TerminalProvider struct {
	in         *os.File
	reader     *bufio.Reader
	isTerminal func(fd int) bool
}

func NewTerminalProvider(in *os.File) *TerminalProvider {
	return &TerminalProvider{in: in, reader: bufio.NewReader(in), isTerminal: term.IsTerminal}
}

// Interactive reports whether input comes from a terminal.
func (p *TerminalProvider) Interactive() bool {
	return p.isTerminal(int(p.in.Fd()))
}

func (p *TerminalProvider) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadSecret reads without echo when attached to a terminal and falls back
// to a plain line otherwise. Input already pulled into the line buffer is
// consumed first so answers stay in order; that line was echoed when typed.
func (p *TerminalProvider) ReadSecret(ctx context.Context) (string, error) {
	if !p.Interactive() || p.reader.Buffered() > 0 {
		return p.ReadLine(ctx)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := term.ReadPassword(int(p.in.Fd()))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ScriptedProvider replays canned responses; used for tests and for
// non-interactive runs fed from a file.
type ScriptedProvider struct {
	lines []string
	pos   int
}

func NewScriptedProvider(lines ...string) *ScriptedProvider {
	return &ScriptedProvider{lines: lines}
}

func (p *ScriptedProvider) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.pos >= len(p.lines) {
		return "", io.EOF
	}
	line := p.lines[p.pos]
	p.pos++
	return line, nil
}

// Consumed reports how many responses have been read.
func (p *ScriptedProvider) Consumed() int { return p.pos }

// Remaining reports how many responses are left.
func (p *ScriptedProvider) Remaining() int { return len(p.lines) - p.pos }
