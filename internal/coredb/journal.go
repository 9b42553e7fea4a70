// SPDX-License-Identifier: AGPL-3.0-or-later

package coredb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrJournalQuotaExceeded indicates the requested append cannot be satisfied
// because the payload is larger than the configured journal limit.
var ErrJournalQuotaExceeded = errors.New("coredb: journal quota exceeded")

// JournalEntry represents a persisted dispatch event.
type JournalEntry struct {
	Seq        int64
	DispatchID string
	EventType  string
	Payload    []byte
	Timestamp  time.Time
}

// DispatchSummary aggregates the journal rows of one dispatch.
type DispatchSummary struct {
	DispatchID string
	Events     int
	FirstSeq   int64
	Started    time.Time
	Updated    time.Time
}

// Journal provides append-only persistence backed by the Core DB.
type Journal struct {
	db       *sql.DB
	maxBytes int64
	nowFn    func() time.Time
}

// NewJournal returns a Journal backed by the provided DB with the supplied
// maximum size budget. When maxBytes is zero or negative the default (16 MiB)
// is used.
func NewJournal(db *DB, maxBytes int64) *Journal {
	if db == nil {
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = defaultJournalMaxBytes
	}
	return &Journal{
		db:       db.sql,
		maxBytes: maxBytes,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Append stores an event for the provided dispatch. It returns the persisted
// entry including the allocated sequence number. Eviction of the oldest rows
// and the insert run in one transaction.
func (j *Journal) Append(ctx context.Context, dispatchID, eventType string, payload []byte, ts time.Time) (entry JournalEntry, err error) {
	if j == nil {
		return entry, nil
	}
	if dispatchID == "" {
		return entry, fmt.Errorf("append journal: dispatch id required")
	}
	if len(payload) == 0 {
		return entry, fmt.Errorf("append journal: payload required")
	}
	payloadBytes := int64(len(payload))
	if payloadBytes > j.maxBytes {
		return entry, ErrJournalQuotaExceeded
	}

	now := ts
	if now.IsZero() {
		now = j.nowFn()
	}

	var tx *sql.Tx
	tx, err = j.db.BeginTx(ctx, nil)
	if err != nil {
		return entry, fmt.Errorf("begin journal tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existingBytes int64
	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(length(payload)), 0) FROM core_dispatch_journal`).Scan(&existingBytes); err != nil {
		err = fmt.Errorf("journal size lookup: %w", err)
		return entry, err
	}

	for existingBytes+payloadBytes > j.maxBytes {
		var seq int64
		var size int64
		err = tx.QueryRowContext(ctx, `SELECT seq, length(payload) FROM core_dispatch_journal ORDER BY seq ASC LIMIT 1`).Scan(&seq, &size)
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			break
		}
		if err != nil {
			err = fmt.Errorf("journal eviction lookup: %w", err)
			return entry, err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM core_dispatch_journal WHERE seq = ?`, seq); err != nil {
			err = fmt.Errorf("journal eviction delete seq=%d: %w", seq, err)
			return entry, err
		}
		existingBytes -= size
		if existingBytes < 0 {
			existingBytes = 0
		}
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx, `
INSERT INTO core_dispatch_journal (dispatch_id, event_type, payload, ts)
VALUES (?, ?, ?, ?)
`, dispatchID, eventType, payload, now.UnixMilli())
	if err != nil {
		err = fmt.Errorf("journal insert: %w", err)
		return entry, err
	}
	var seq int64
	seq, err = res.LastInsertId()
	if err != nil {
		err = fmt.Errorf("journal last insert id: %w", err)
		return entry, err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("journal commit: %w", err)
		return entry, err
	}

	return JournalEntry{
		Seq:        seq,
		DispatchID: dispatchID,
		EventType:  eventType,
		Payload:    append([]byte(nil), payload...),
		Timestamp:  now,
	}, nil
}

// Bounds returns the earliest and latest sequence currently retained for the
// provided dispatch. A zero earliest indicates no events are stored.
func (j *Journal) Bounds(ctx context.Context, dispatchID string) (earliest, latest int64, err error) {
	if j == nil {
		return 0, 0, nil
	}
	if err = j.db.QueryRowContext(ctx, `
SELECT COALESCE(MIN(seq), 0), COALESCE(MAX(seq), 0)
FROM core_dispatch_journal WHERE dispatch_id = ?
`, dispatchID).Scan(&earliest, &latest); err != nil {
		return 0, 0, fmt.Errorf("journal bounds: %w", err)
	}
	return earliest, latest, nil
}

// ForEach streams events for the supplied dispatch strictly after the
// provided sequence in ascending order. Iteration halts if the callback
// returns an error.
func (j *Journal) ForEach(ctx context.Context, dispatchID string, afterSeq int64, fn func(JournalEntry) error) error {
	if j == nil || fn == nil {
		return nil
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT seq, event_type, payload, ts
FROM core_dispatch_journal
WHERE dispatch_id = ? AND seq > ?
ORDER BY seq ASC
`, dispatchID, afterSeq)
	if err != nil {
		return fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		var eventType string
		var payload []byte
		var tsMillis int64
		if err := rows.Scan(&seq, &eventType, &payload, &tsMillis); err != nil {
			return fmt.Errorf("journal scan: %w", err)
		}
		entry := JournalEntry{
			Seq:        seq,
			DispatchID: dispatchID,
			EventType:  eventType,
			Payload:    append([]byte(nil), payload...),
			Timestamp:  time.UnixMilli(tsMillis).UTC(),
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("journal rows: %w", err)
	}
	return nil
}

// Dispatches lists the most recent dispatches, newest first. A limit of zero
// or less returns all retained dispatches.
func (j *Journal) Dispatches(ctx context.Context, limit int) ([]DispatchSummary, error) {
	if j == nil {
		return nil, nil
	}
	query := `
SELECT dispatch_id, COUNT(*), MIN(seq), MIN(ts), MAX(ts)
FROM core_dispatch_journal
GROUP BY dispatch_id
ORDER BY MIN(seq) DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal dispatches: %w", err)
	}
	defer rows.Close()

	var out []DispatchSummary
	for rows.Next() {
		var s DispatchSummary
		var started, updated int64
		if err := rows.Scan(&s.DispatchID, &s.Events, &s.FirstSeq, &started, &updated); err != nil {
			return nil, fmt.Errorf("journal dispatches scan: %w", err)
		}
		s.Started = time.UnixMilli(started).UTC()
		s.Updated = time.UnixMilli(updated).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal dispatches rows: %w", err)
	}
	return out, nil
}
