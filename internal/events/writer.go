// SPDX-License-Identifier: AGPL-3.0-or-later
package events

import (
	"bytes"
	"io"
)

// LogWriter tees handler output to out and emits every complete line as a
// handler.log event. Call Flush once the handler exits to emit a trailing
// partial line.
type LogWriter struct {
	sink       Sink
	dispatchID string
	handler    string
	channel    string
	out        io.Writer
	pending    []byte
	redact     func(string) string
}

func NewLogWriter(sink Sink, dispatchID, handler, channel string, out io.Writer, redact func(string) string) *LogWriter {
	return &LogWriter{sink: sink, dispatchID: dispatchID, handler: handler, channel: channel, out: out, redact: redact}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	if w.out != nil {
		if _, err := w.out.Write(p); err != nil {
			return 0, err
		}
	}
	rest := p
	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			break
		}
		w.pending = append(w.pending, rest[:i]...)
		w.emit()
		rest = rest[i+1:]
	}
	w.pending = append(w.pending, rest...)
	return len(p), nil
}

func (w *LogWriter) Flush() {
	if len(w.pending) > 0 {
		w.emit()
	}
}

func (w *LogWriter) emit() {
	line := string(bytes.TrimSuffix(w.pending, []byte{'\r'}))
	w.pending = w.pending[:0]
	if w.sink == nil {
		return
	}
	if w.redact != nil {
		line = w.redact(line)
	}
	w.sink.EmitHandlerLog(w.dispatchID, w.handler, w.channel, line)
}
