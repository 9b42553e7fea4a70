// SPDX-License-Identifier: AGPL-3.0-or-later
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TypeDispatchStart    = "dispatch.start"
	TypeArgumentResolved = "argument.resolved"
	TypeDispatchConfirm  = "dispatch.confirm"
	TypeHandlerLog       = "handler.log"
	TypeDispatchFinish   = "dispatch.finish"
)

// Finish statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)

type DispatchEvent struct {
	Sequence   int64                  `json:"sequence"`
	Timestamp  time.Time              `json:"timestamp"`
	Type       string                 `json:"type"`
	DispatchID string                 `json:"dispatch_id"`
	Handler    string                 `json:"handler,omitempty"`
	Channel    string                 `json:"channel,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Emitter prints dispatch events to a writer, as text lines or JSON lines.
type Emitter struct {
	mu   sync.Mutex
	seq  int64
	out  io.Writer
	json bool
}

func NewEmitter(out io.Writer, json bool) *Emitter {
	if out == nil {
		return nil
	}
	return &Emitter{out: out, json: json}
}

func (e *Emitter) nextSeq() int64 {
	e.seq++
	return e.seq
}

func (e *Emitter) emit(ev DispatchEvent) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ev.Sequence = e.nextSeq()
	ev.Timestamp = time.Now().UTC()

	if e.json {
		payload, err := json.Marshal(ev)
		if err != nil {
			fmt.Fprintf(e.out, "{\"error\":%q}\n", err.Error())
			return
		}
		fmt.Fprintf(e.out, "%s\n", payload)
		return
	}

	fmt.Fprintf(e.out, "[%d] %s", ev.Sequence, ev.Type)
	if ev.DispatchID != "" {
		fmt.Fprintf(e.out, " dispatch=%s", ev.DispatchID)
	}
	if ev.Handler != "" {
		fmt.Fprintf(e.out, " handler=%s", ev.Handler)
	}
	if ev.Channel != "" {
		fmt.Fprintf(e.out, " channel=%s", ev.Channel)
	}
	if ev.Message != "" {
		fmt.Fprintf(e.out, " msg=%s", ev.Message)
	}
	if len(ev.Data) > 0 {
		keys := make([]string, 0, len(ev.Data))
		for k := range ev.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(e.out, " data={")
		for i, k := range keys {
			if i > 0 {
				fmt.Fprintf(e.out, ", ")
			}
			fmt.Fprintf(e.out, "%s:%v", k, ev.Data[k])
		}
		fmt.Fprintf(e.out, "}")
	}
	fmt.Fprintln(e.out)
}

func (e *Emitter) EmitDispatchStart(dispatchID, action string) {
	e.emit(StartEvent(dispatchID, action))
}

func (e *Emitter) EmitArgumentResolved(dispatchID, name string, value interface{}, source string) {
	e.emit(ArgumentEvent(dispatchID, name, value, source))
}

func (e *Emitter) EmitConfirm(dispatchID string, accepted bool) {
	e.emit(ConfirmEvent(dispatchID, accepted))
}

func (e *Emitter) EmitHandlerLog(dispatchID, handler, channel, message string) {
	if message == "" {
		return
	}
	e.emit(DispatchEvent{Type: TypeHandlerLog, DispatchID: dispatchID, Handler: handler, Channel: channel, Message: message})
}

func (e *Emitter) EmitDispatchFinish(dispatchID, handler, status string, err error) {
	e.emit(FinishEvent(dispatchID, handler, status, err))
}

func StartEvent(dispatchID, action string) DispatchEvent {
	return DispatchEvent{
		Type:       TypeDispatchStart,
		DispatchID: dispatchID,
		Data:       map[string]interface{}{"action": action},
	}
}

func ArgumentEvent(dispatchID, name string, value interface{}, source string) DispatchEvent {
	return DispatchEvent{
		Type:       TypeArgumentResolved,
		DispatchID: dispatchID,
		Data:       map[string]interface{}{"name": name, "value": value, "source": source},
	}
}

func ConfirmEvent(dispatchID string, accepted bool) DispatchEvent {
	return DispatchEvent{
		Type:       TypeDispatchConfirm,
		DispatchID: dispatchID,
		Data:       map[string]interface{}{"accepted": accepted},
	}
}

func FinishEvent(dispatchID, handler, status string, err error) DispatchEvent {
	data := map[string]interface{}{"status": status}
	if err != nil {
		data["error"] = err.Error()
	}
	return DispatchEvent{Type: TypeDispatchFinish, DispatchID: dispatchID, Handler: handler, Data: data}
}

// GenerateDispatchID returns a fresh dispatch identifier.
func GenerateDispatchID() string {
	return "dsp-" + uuid.NewString()
}
