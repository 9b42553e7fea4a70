// SPDX-License-Identifier: AGPL-3.0-or-later
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/flowd-org/ask/internal/coredb"
)

// JournalSink persists dispatch events to the Core DB journal. Persistence
// failures are logged and never interrupt a dispatch.
type JournalSink struct {
	ctx     context.Context
	journal *coredb.Journal
	logger  *slog.Logger
	now     func() time.Time
}

func NewJournalSink(ctx context.Context, journal *coredb.Journal, logger *slog.Logger) *JournalSink {
	if journal == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalSink{
		ctx:     ctx,
		journal: journal,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *JournalSink) append(ev DispatchEvent) {
	if s == nil {
		return
	}
	ev.Timestamp = s.now()
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("encode journal event", slog.String("type", ev.Type), slog.Any("error", err))
		return
	}
	entry, err := s.journal.Append(s.ctx, ev.DispatchID, ev.Type, payload, ev.Timestamp)
	if err != nil {
		if coredb.IsJournalFull(err) {
			s.logger.Warn("dispatch journal full; event dropped", slog.String("type", ev.Type), slog.Int("bytes", len(payload)))
			return
		}
		s.logger.Warn("append journal event", slog.String("type", ev.Type), slog.Any("error", err))
		return
	}
	s.logger.Debug("journal event appended", slog.String("type", ev.Type), slog.Int64("seq", entry.Seq))
}

func (s *JournalSink) EmitDispatchStart(dispatchID, action string) {
	s.append(StartEvent(dispatchID, action))
}

func (s *JournalSink) EmitArgumentResolved(dispatchID, name string, value interface{}, source string) {
	s.append(ArgumentEvent(dispatchID, name, value, source))
}

func (s *JournalSink) EmitConfirm(dispatchID string, accepted bool) {
	s.append(ConfirmEvent(dispatchID, accepted))
}

// EmitHandlerLog is not journaled; handler output can be large and is
// already on the console.
func (s *JournalSink) EmitHandlerLog(dispatchID, handler, channel, message string) {}

func (s *JournalSink) EmitDispatchFinish(dispatchID, handler, status string, err error) {
	s.append(FinishEvent(dispatchID, handler, status, err))
}

// DecodeEvent parses a journal payload back into an event.
func DecodeEvent(payload []byte) (DispatchEvent, error) {
	var ev DispatchEvent
	err := json.Unmarshal(payload, &ev)
	return ev, err
}
